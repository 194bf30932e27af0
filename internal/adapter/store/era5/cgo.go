package era5

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// readCgo reads a variable through libnetcdf.
//
//nolint:gosec // path comes from configuration.
func readCgo(path, variable string) (*rawField, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	r := &rawField{}

	if r.Lat, _, err = readCoordCgo(nc, latNames); err != nil {
		return nil, err
	}
	if r.Lon, _, err = readCoordCgo(nc, lonNames); err != nil {
		return nil, err
	}
	var tv netcdf.Var
	if r.Time, tv, err = readCoordCgo(nc, timeNames); err != nil {
		return nil, err
	}
	if r.TimeUnits, err = attrString(tv, "units"); err != nil {
		return nil, fmt.Errorf("time variable has no units: %w", err)
	}

	v, err := nc.Var(variable)
	if err != nil {
		return nil, fmt.Errorf("variable %q not found: %w", variable, err)
	}
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	for _, d := range dims {
		name, err := d.Name()
		if err != nil {
			return nil, fmt.Errorf("failed to get dimension name: %w", err)
		}
		n, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("failed to get dimension length: %w", err)
		}
		r.DimNames = append(r.DimNames, name)
		r.Shape = append(r.Shape, int(n))
	}

	if r.Data, err = readAllCgo(v); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", variable, err)
	}

	r.Units, _ = attrString(v, "units")
	if s, ok := attrFloat(v, "scale_factor"); ok {
		r.Scale, r.HasScale = s, true
	}
	r.Offset, _ = attrFloat(v, "add_offset")
	for _, name := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(v, name); ok {
			r.Fill = append(r.Fill, fv)
		}
	}
	return r, nil
}

func readCoordCgo(nc netcdf.Dataset, names []string) ([]float64, netcdf.Var, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		data, err := readAllCgo(v)
		if err != nil {
			return nil, v, fmt.Errorf("failed to read %s: %w", name, err)
		}
		return data, v, nil
	}
	return nil, netcdf.Var{}, fmt.Errorf("coordinate variable not found (tried: %v)", names)
}

// readAllCgo reads every value of v as float64, whatever its storage type.
func readAllCgo(v netcdf.Var) ([]float64, error) {
	n, err := v.Len()
	if err != nil {
		return nil, err
	}
	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get var type: %w", err)
	}

	out := make([]float64, n)
	switch t {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64s(out); err != nil {
			return nil, err
		}
	case netcdf.FLOAT:
		tmp := make([]float32, n)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, err
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.INT64:
		tmp := make([]int64, n)
		if err := v.ReadInt64s(tmp); err != nil {
			return nil, err
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.INT:
		tmp := make([]int32, n)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, err
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	case netcdf.SHORT:
		tmp := make([]int16, n)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, err
		}
		for i, x := range tmp {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("unsupported var type: %v", t)
	}
	return out, nil
}

// attrFloat reads a numeric scalar attribute.
func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	t, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch t {
	case netcdf.DOUBLE:
		buf := make([]float64, 1)
		if a.ReadFloat64s(buf) == nil {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, 1)
		if a.ReadFloat32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, 1)
		if a.ReadInt32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.SHORT:
		buf := make([]int16, 1)
		if a.ReadInt16s(buf) == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}

func attrString(v netcdf.Var, name string) (string, error) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", err
	}
	// C strings may carry a trailing NUL.
	for len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf), nil
}
