package measurement

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/milosgajdos/go-fusion/fusion"
)

// Writer writes records in the measurement log format.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates new Writer which writes records to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: bufio.NewWriter(w),
	}
}

// Write writes rec as a single log line.
func (w *Writer) Write(rec Record) error {
	line, err := Format(rec)
	if err != nil {
		return err
	}

	if _, err := w.w.WriteString(line + "\n"); err != nil {
		return err
	}

	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Format formats rec as a log line without the trailing newline.
func Format(rec Record) (string, error) {
	m := rec.Measurement
	if err := m.Validate(); err != nil {
		return "", err
	}

	fields := make([]string, 0, 1+len(m.Values)+1+GroundTruthDim)

	switch m.Sensor {
	case fusion.Laser:
		fields = append(fields, "L")
	case fusion.Radar:
		fields = append(fields, "R")
	}

	for _, v := range m.Values {
		fields = append(fields, formatFloat(v))
	}
	fields = append(fields, strconv.FormatInt(m.Timestamp, 10))

	if rec.GroundTruth != nil {
		if rec.GroundTruth.Len() != GroundTruthDim {
			return "", fmt.Errorf("%w: ground truth has %d values", ErrInvalidRecord, rec.GroundTruth.Len())
		}
		for i := 0; i < GroundTruthDim; i++ {
			fields = append(fields, formatFloat(rec.GroundTruth.AtVec(i)))
		}
	}

	return strings.Join(fields, "\t"), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
