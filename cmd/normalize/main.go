// Command normalize runs captured station uploads through the same
// normalization the service applies and prints the result as JSON, one
// object per upload. Useful for checking a new gateway firmware or building
// test fixtures.
//
// Usage:
//
//	go run ./cmd/normalize -in internal/pipeline/testdata/gw1000.txt -pretty
//	curl ... | go run ./cmd/normalize -windchill legacy
//
// Each non-empty input line is one form-encoded upload body.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

type fieldIssue struct {
	Key   string `json:"key"`
	Raw   string `json:"raw"`
	Error string `json:"error"`
}

type output struct {
	Station      string         `json:"station,omitempty"`
	ReceivedAt   time.Time      `json:"received_at"`
	Fields       *domain.Record `json:"fields"`
	Errors       []fieldIssue   `json:"errors,omitempty"`
	Unrecognized []string       `json:"unrecognized,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "file of upload bodies, one per line (default stdin)")
	windchill := flag.String("windchill", domain.DefaultWindchillMode.String(), "wind chill formula: legacy, modern or hybrid")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	strict := flag.Bool("strict", false, "exit non-zero when any field fails to decode")
	flag.Parse()

	mode, err := domain.ParseWindchillMode(*windchill)
	if err != nil {
		return err
	}

	var src io.Reader = os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	// Fixed clock so repeated runs produce identical output.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 3, 0, time.UTC)))
	defer domain.SetClock(nil)

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}

	uploads, failures, err := normalizeAll(src, mode, enc.Encode)
	if err != nil {
		return err
	}
	log.Printf("%d uploads, %d field decode errors", uploads, failures)

	if *strict && failures > 0 {
		return fmt.Errorf("%d fields failed to decode", failures)
	}
	return nil
}

// normalizeAll normalizes every line of src and passes each result to emit.
// It returns the number of uploads and decode errors seen.
func normalizeAll(src io.Reader, mode domain.WindchillMode, emit func(any) error) (uploads, failures int, err error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw, perr := domain.ParseForm(line)
		if perr != nil {
			log.Printf("line %d: %v", lineNo, perr)
		}

		res := domain.Normalize(raw, mode)
		report := domain.NewReport(res.Record)

		out := output{
			Station:      report.Station.ID(),
			ReceivedAt:   report.ReceivedAt,
			Fields:       report.Fields,
			Unrecognized: res.Unrecognized,
		}
		for _, fe := range res.Errors {
			out.Errors = append(out.Errors, fieldIssue{Key: fe.Key, Raw: fe.Raw, Error: fe.Err.Error()})
		}

		if err := emit(out); err != nil {
			return uploads, failures, err
		}
		uploads++
		failures += len(res.Errors)
	}
	return uploads, failures, scanner.Err()
}
