package annotation

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"bioterms/internal/model"
)

// rf2MapRow is one row of an RF2 simple/complex map refset, the shape
// ordo_snomed.go and ctv3_snomed.go both consume: id, effectiveTime,
// active, moduleId, refsetId, referencedComponentId, mapTarget.
type rf2MapRow struct {
	ID                     string
	EffectiveTime          string
	Active                 string
	ReferencedComponentID  string
	MapTarget              string
}

// readRF2MapFile parses a tab-delimited RF2 map refset file (header
// skipped), assuming the fixed simple-map column layout id,
// effectiveTime, active, moduleId, refSetId, referencedComponentId,
// mapTarget.
func readRF2MapFile(path string) ([]rf2MapRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing RF2 map file "+path, err)
	}
	defer f.Close()

	var rows []rf2MapRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 7 {
			continue
		}
		rows = append(rows, rf2MapRow{
			ID: cols[0], EffectiveTime: cols[1], Active: cols[2],
			ReferencedComponentID: cols[5], MapTarget: cols[6],
		})
	}
	return rows, nil
}

// dedupRF2MapByLatestEffectiveTime keeps, per id, the row with the
// maximum effectiveTime, per spec.md §4.1's RF2 deduplication rule.
func dedupRF2MapByLatestEffectiveTime(rows []rf2MapRow) []rf2MapRow {
	latest := make(map[string]rf2MapRow, len(rows))
	for _, r := range rows {
		cur, ok := latest[r.ID]
		if !ok || effectiveTimeLess(cur.EffectiveTime, r.EffectiveTime) {
			latest[r.ID] = r
		}
	}
	out := make([]rf2MapRow, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	return out
}

func effectiveTimeLess(a, b string) bool {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return an < bn
	}
	return a < b
}
