// Package trace loads per-vehicle position traces from CSV files.
//
// A trace file holds one row per simulation timestep:
//
//	latitude,longitude,elevation
//
// The transmitter walks the trace row by row, one message per timestep.
package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// Fix is a single trace row.
type Fix struct {
	Latitude  float64
	Longitude float64
	Elevation float64
}

// Trace is an ordered sequence of position fixes for one vehicle.
type Trace []Fix

// LoadVehicle loads the trace for a vehicle id from dir/<id>.csv.
func LoadVehicle(dir string, id uint8) (Trace, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d.csv", id))
	return LoadFile(path)
}

// LoadFile loads a trace from a CSV file.
func LoadFile(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, verrors.NewOpError("trace.LoadFile", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // allow trailing columns in recorded traces

	records, err := r.ReadAll()
	if err != nil {
		return nil, verrors.NewOpError("trace.LoadFile", err)
	}

	t := make(Trace, 0, len(records))
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, verrors.NewOpError("trace.LoadFile",
				fmt.Errorf("row %d: want at least 3 fields, got %d", i, len(rec)))
		}
		var fix Fix
		for j, dst := range []*float64{&fix.Latitude, &fix.Longitude, &fix.Elevation} {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, verrors.NewOpError("trace.LoadFile",
					fmt.Errorf("row %d field %d: %w", i, j, err))
			}
			*dst = v
		}
		t = append(t, fix)
	}
	return t, nil
}
