package document

import "sort"

// sortAutoCompleteRows orders by (positionScore ascending, labelLength
// ascending, conceptId ascending), the total order the auto-complete
// contract requires across every backend.
func sortAutoCompleteRows(rows []autoCompleteRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].positionScore != rows[j].positionScore {
			return rows[i].positionScore < rows[j].positionScore
		}
		if rows[i].labelLength != rows[j].labelLength {
			return rows[i].labelLength < rows[j].labelLength
		}
		return rows[i].conceptID < rows[j].conceptID
	})
}
