package era5

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// readNative reads a variable with the pure Go NetCDF decoder, so it works
// without libnetcdf.
func readNative(path, variable string) (*rawField, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer nc.Close()

	r := &rawField{}

	if r.Lat, _, err = readCoordNative(nc, latNames); err != nil {
		return nil, err
	}
	if r.Lon, _, err = readCoordNative(nc, lonNames); err != nil {
		return nil, err
	}
	var tv *api.Variable
	if r.Time, tv, err = readCoordNative(nc, timeNames); err != nil {
		return nil, err
	}
	units, ok := tv.Attributes.Get("units")
	if !ok {
		return nil, fmt.Errorf("time variable has no units")
	}
	if r.TimeUnits, ok = units.(string); !ok {
		return nil, fmt.Errorf("time units attribute is %T, expected string", units)
	}

	vg, err := nc.GetVarGetter(variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q not found: %w", variable, err)
	}
	r.DimNames = vg.Dimensions()
	values, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", variable, err)
	}
	if r.Data, r.Shape, err = flatten(values); err != nil {
		return nil, fmt.Errorf("%s: %w", variable, err)
	}

	attrs := vg.Attributes()
	if u, ok := attrs.Get("units"); ok {
		r.Units, _ = u.(string)
	}
	if s, ok := nativeAttrFloat(attrs, "scale_factor"); ok {
		r.Scale, r.HasScale = s, true
	}
	r.Offset, _ = nativeAttrFloat(attrs, "add_offset")
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := nativeAttrFloat(attrs, name); ok {
			r.Fill = append(r.Fill, fv)
		}
	}
	return r, nil
}

func readCoordNative(nc api.Group, names []string) ([]float64, *api.Variable, error) {
	for _, name := range names {
		v, err := nc.GetVariable(name)
		if err != nil {
			continue
		}
		data, _, err := flatten(v.Values)
		if err != nil {
			return nil, v, fmt.Errorf("%s: %w", name, err)
		}
		return data, v, nil
	}
	return nil, nil, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func flatten1[T number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func flatten3[T number](v [][][]T) ([]float64, []int) {
	shape := []int{len(v), 0, 0}
	if len(v) > 0 {
		shape[1] = len(v[0])
		if len(v[0]) > 0 {
			shape[2] = len(v[0][0])
		}
	}
	out := make([]float64, 0, shape[0]*shape[1]*shape[2])
	for _, plane := range v {
		for _, row := range plane {
			for _, x := range row {
				out = append(out, float64(x))
			}
		}
	}
	return out, shape
}

// flatten converts the decoder's typed slices to a row-major float64 slice
// and reports their shape.
func flatten(values any) ([]float64, []int, error) {
	switch v := values.(type) {
	case []float64:
		return flatten1(v), []int{len(v)}, nil
	case []float32:
		return flatten1(v), []int{len(v)}, nil
	case []int64:
		return flatten1(v), []int{len(v)}, nil
	case []int32:
		return flatten1(v), []int{len(v)}, nil
	case []int16:
		return flatten1(v), []int{len(v)}, nil
	case [][][]float64:
		data, shape := flatten3(v)
		return data, shape, nil
	case [][][]float32:
		data, shape := flatten3(v)
		return data, shape, nil
	case [][][]int32:
		data, shape := flatten3(v)
		return data, shape, nil
	case [][][]int16:
		data, shape := flatten3(v)
		return data, shape, nil
	case [][][]int8:
		data, shape := flatten3(v)
		return data, shape, nil
	default:
		return nil, nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func nativeAttrFloat(attrs api.AttributeMap, name string) (float64, bool) {
	a, ok := attrs.Get(name)
	if !ok {
		return 0, false
	}
	switch v := a.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}
