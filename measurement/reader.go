// Package measurement reads sensor measurement logs.
//
// Every line of the log holds a single measurement:
//
//	L <px> <py> <timestamp> [<gt_px> <gt_py> <gt_vx> <gt_vy>]
//	R <rho> <phi> <rho_dot> <timestamp> [<gt_px> <gt_py> <gt_vx> <gt_vy>]
//
// Fields are separated by tabs or spaces. Timestamps are in microseconds.
// Blank lines and lines starting with # are ignored.
package measurement

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/milosgajdos/go-fusion/fusion"
	"github.com/milosgajdos/go-fusion/model"
	"gonum.org/v1/gonum/mat"
)

// GroundTruthDim is the number of ground truth values of a record.
const GroundTruthDim = model.StateDim

var (
	// ErrInvalidRecord is returned when a log line can not be parsed.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrOutOfOrder is returned when a record is older than the one preceding it.
	ErrOutOfOrder = errors.New("record out of order")
)

// Record is a single parsed log line.
type Record struct {
	// Measurement is the sensor measurement
	Measurement fusion.Measurement
	// GroundTruth is the true object state, nil if the log does not carry it
	GroundTruth *mat.VecDense
}

// HasGroundTruth returns true if the record carries ground truth.
func (r Record) HasGroundTruth() bool {
	return r.GroundTruth != nil
}

// Reader reads records from measurement log.
type Reader struct {
	s      *bufio.Scanner
	line   int
	prevTs int64
	read   bool
}

// NewReader creates new Reader which reads records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		s: bufio.NewScanner(r),
	}
}

// Next returns the next record of the log.
// It returns io.EOF when there are no more records to read.
func (r *Reader) Next() (Record, error) {
	for r.s.Scan() {
		r.line++

		line := strings.TrimSpace(r.s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := Parse(line)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}

		ts := rec.Measurement.Timestamp
		if r.read && ts < r.prevTs {
			return Record{}, fmt.Errorf("line %d: %w: timestamp %d precedes %d", r.line, ErrOutOfOrder, ts, r.prevTs)
		}
		r.prevTs = ts
		r.read = true

		return rec, nil
	}

	if err := r.s.Err(); err != nil {
		return Record{}, err
	}

	return Record{}, io.EOF
}

// ReadAll reads all remaining records.
func (r *Reader) ReadAll() ([]Record, error) {
	var recs []Record
	for {
		rec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return recs, nil
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
}

// Parse parses a single log line.
func Parse(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("%w: empty line", ErrInvalidRecord)
	}

	var sensor fusion.SensorType
	switch fields[0] {
	case "L":
		sensor = fusion.Laser
	case "R":
		sensor = fusion.Radar
	default:
		return Record{}, fmt.Errorf("%w: unknown sensor %q", ErrInvalidRecord, fields[0])
	}

	dim := sensor.Dim()
	rest := fields[1:]
	if len(rest) != dim+1 && len(rest) != dim+1+GroundTruthDim {
		return Record{}, fmt.Errorf("%w: %v record has %d fields", ErrInvalidRecord, sensor, len(rest))
	}

	vals, err := parseFloats(rest[:dim])
	if err != nil {
		return Record{}, err
	}

	ts, err := strconv.ParseInt(rest[dim], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidRecord, err)
	}

	rec := Record{
		Measurement: fusion.Measurement{
			Sensor:    sensor,
			Values:    vals,
			Timestamp: ts,
		},
	}

	if err := rec.Measurement.Validate(); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	if gt := rest[dim+1:]; len(gt) > 0 {
		truth, err := parseFloats(gt)
		if err != nil {
			return Record{}, err
		}
		for i, v := range truth {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Record{}, fmt.Errorf("%w: ground truth value %d is %v", ErrInvalidRecord, i, v)
			}
		}
		rec.GroundTruth = mat.NewVecDense(GroundTruthDim, truth)
	}

	return rec, nil
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		vals[i] = v
	}

	return vals, nil
}
