package vocab

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"bioterms/internal/model"
)

// rf2Row is one tab-separated row of a SNOMED CT RF2 release file. Every
// RF2 file (Concept, Description, Relationship) shares this header shape.
type rf2Row struct {
	ID            string
	EffectiveTime string
	Active        string
	Fields        []string // remaining columns, in file order, after the shared 4 (id, effectiveTime, active, moduleId)
}

// readRF2File parses a tab-delimited RF2 snapshot/full file, returning one
// rf2Row per data line (header skipped). Column layout: id, effectiveTime,
// active, moduleId, then file-specific columns.
func readRF2File(path string) ([]rf2Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing RF2 file "+path, err)
	}
	defer f.Close()

	var rows []rf2Row
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header row
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 5 {
			continue
		}
		rows = append(rows, rf2Row{
			ID:            cols[0],
			EffectiveTime: cols[1],
			Active:        cols[2],
			Fields:        cols[4:],
		})
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, model.NewParseError(path, 0, "failed scanning RF2 file", err)
	}
	return rows, nil
}

// dedupRF2ByLatestEffectiveTime groups rows by id and keeps only the row
// with the maximum effectiveTime per id, per spec: RF2 release files are
// append-only histories and only the latest version of a component is
// current.
func dedupRF2ByLatestEffectiveTime(rows []rf2Row) []rf2Row {
	latest := make(map[string]rf2Row, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.ID]
		if !ok || effectiveTimeLess(cur.EffectiveTime, r.EffectiveTime) {
			latest[r.ID] = r
		}
	}
	out := make([]rf2Row, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	return out
}

// effectiveTimeLess compares RF2 effectiveTime values (YYYYMMDD strings);
// falls back to lexicographic comparison which is already correct for
// this fixed-width numeric format, but guards against malformed input.
func effectiveTimeLess(a, b string) bool {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return a < b
}
