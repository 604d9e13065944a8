package storage

import (
	"fmt"
	"strings"
)

// maxBatchRows keeps a multi-row INSERT under PostgreSQL's 65535 bind
// parameter limit for the widest table.
const maxBatchRows = 4000

// valuesClause renders "($1,$2),($3,$4)..." for rows × cols placeholders.
func valuesClause(rows, cols int) string {
	var b strings.Builder
	for i := range rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j := range cols {
			if j > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "$%d", i*cols+j+1)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// chunks splits n items into [start, end) ranges of at most size.
func chunks(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
	}
	return out
}
