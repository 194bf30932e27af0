package era5

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/waves-api/internal/domain"
)

// FillValue marks missing cells in written files.
const FillValue float32 = -32767

// timeUnits is the time encoding used by WriteFile.
const timeUnits = "hours since 1970-01-01 00:00:00"

// WriteFile writes s as a classic NetCDF file with (time, latitude, longitude)
// dimensions and increasing axes. NaN cells are stored as FillValue.
func WriteFile(path string, s *domain.FieldStack) error {
	s = s.Ascending()
	if err := s.Validate(); err != nil {
		return err
	}

	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = nc.Close() }()

	timeDim, err := nc.AddDim("time", uint64(len(s.Times)))
	if err != nil {
		return err
	}
	latDim, err := nc.AddDim("latitude", uint64(len(s.Lat)))
	if err != nil {
		return err
	}
	lonDim, err := nc.AddDim("longitude", uint64(len(s.Lon)))
	if err != nil {
		return err
	}

	vtime, err := nc.AddVar("time", netcdf.DOUBLE, []netcdf.Dim{timeDim})
	if err != nil {
		return err
	}
	vlat, err := nc.AddVar("latitude", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	vlon, err := nc.AddVar("longitude", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	vdata, err := nc.AddVar(s.Variable, netcdf.FLOAT, []netcdf.Dim{timeDim, latDim, lonDim})
	if err != nil {
		return err
	}

	if err := vtime.Attr("units").WriteBytes([]byte(timeUnits)); err != nil {
		return err
	}
	if err := vlat.Attr("units").WriteBytes([]byte("degrees_north")); err != nil {
		return err
	}
	if err := vlon.Attr("units").WriteBytes([]byte("degrees_east")); err != nil {
		return err
	}
	if s.Units != "" {
		if err := vdata.Attr("units").WriteBytes([]byte(s.Units)); err != nil {
			return err
		}
	}
	if err := vdata.Attr("_FillValue").WriteFloat32s([]float32{FillValue}); err != nil {
		return err
	}

	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("enddef: %w", err)
	}

	hours := make([]float64, len(s.Times))
	for k, t := range s.Times {
		hours[k] = float64(t.Unix()) / 3600
	}
	if err := vtime.WriteFloat64s(hours); err != nil {
		return fmt.Errorf("write time: %w", err)
	}
	if err := vlat.WriteFloat64s(s.Lat); err != nil {
		return fmt.Errorf("write latitude: %w", err)
	}
	if err := vlon.WriteFloat64s(s.Lon); err != nil {
		return fmt.Errorf("write longitude: %w", err)
	}

	flat := make([]float32, 0, len(s.Times)*len(s.Lat)*len(s.Lon))
	for _, plane := range s.Values {
		for _, row := range plane {
			for _, v := range row {
				if math.IsNaN(v) {
					flat = append(flat, FillValue)
					continue
				}
				flat = append(flat, float32(v))
			}
		}
	}
	if err := vdata.WriteFloat32s(flat); err != nil {
		return fmt.Errorf("write %s: %w", s.Variable, err)
	}
	return nil
}
