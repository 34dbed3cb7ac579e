package dupblock

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/google/vectorio"
)

// iovMax caps the iovecs handed to one writev call (see golang/go#58623)
const iovMax = 1024

var newline = []byte{'\n'}

// WriteGroups writes duplicate groups to w in the given format.
// The human format lists one path per line with a blank line after each group;
// when w is an *os.File it is written with writev. The json format is an
// array of DuplicateGroup objects.
func WriteGroups(w io.Writer, groups []DuplicateGroup, format string) error {
	switch strings.ToLower(format) {
	case "", "human":
		if file, ok := w.(*os.File); ok {
			return writeGroupsVectored(file, groups)
		}
		_, err := io.WriteString(w, FormatGroups(groups))
		return err
	case "json":
		if groups == nil {
			groups = []DuplicateGroup{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(groups); err != nil {
			return fmt.Errorf("failed to encode groups: %w", err)
		}
		return nil
	default:
		return ValidateOutputFormat(format)
	}
}

// FormatGroups renders groups in the human format
func FormatGroups(groups []DuplicateGroup) string {
	var sb strings.Builder
	for _, group := range groups {
		for _, file := range group.Files {
			sb.WriteString(file)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// groupBuffers lists the byte slices of the human format in output order
func groupBuffers(groups []DuplicateGroup) ([][]byte, int) {
	var buffers [][]byte
	total := 0
	for _, group := range groups {
		for _, file := range group.Files {
			if file != "" {
				buffers = append(buffers, []byte(file))
				total += len(file)
			}
			buffers = append(buffers, newline)
			total++
		}
		buffers = append(buffers, newline)
		total++
	}
	return buffers, total
}

func writeGroupsVectored(file *os.File, groups []DuplicateGroup) error {
	buffers, total := groupBuffers(groups)
	if len(buffers) == 0 {
		return nil
	}

	iovecs := make([]syscall.Iovec, len(buffers))
	for i, buf := range buffers {
		iovecs[i].Base = &buf[0]
		iovecs[i].SetLen(len(buf))
	}

	totalWritten := 0
	for offset := 0; offset < len(iovecs); offset += iovMax {
		end := offset + iovMax
		if end > len(iovecs) {
			end = len(iovecs)
		}

		chunkSize := 0
		for _, buf := range buffers[offset:end] {
			chunkSize += len(buf)
		}

		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs[offset:end])
		if err != nil {
			return fmt.Errorf("failed to write groups with vectorio: %w", err)
		}
		if nw < chunkSize {
			// Finish a short writev with plain writes
			if err := writeRemainder(file, buffers[offset:end], nw); err != nil {
				return err
			}
			nw = chunkSize
		}
		totalWritten += nw
	}

	if totalWritten != total {
		return fmt.Errorf("groups write incomplete: wrote %d bytes, expected %d", totalWritten, total)
	}
	return nil
}

// writeRemainder writes whatever of buffers lies past the first skip bytes
func writeRemainder(w io.Writer, buffers [][]byte, skip int) error {
	for _, buf := range buffers {
		if skip >= len(buf) {
			skip -= len(buf)
			continue
		}
		if _, err := w.Write(buf[skip:]); err != nil {
			return fmt.Errorf("failed to write groups: %w", err)
		}
		skip = 0
	}
	return nil
}
