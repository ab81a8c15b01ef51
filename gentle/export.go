package gentle

import (
	"fmt"
	"strings"

	"github.com/zk94007/osum-vsl/shared/types"
)

// SRT renders rows in SubRip format.
func SRT(rows []types.Row) string {
	var b strings.Builder
	for i, r := range rows {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(r.StartTime), srtTimestamp(r.EndTime), r.Text)
	}
	return b.String()
}

func srtTimestamp(ms int64) string {
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// CSV renders rows as a quoted-field CSV with a header row. Every field is
// quoted regardless of content.
func CSV(rows []types.Row) string {
	var b strings.Builder
	b.WriteString(`"startTime","endTime","text"` + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, `"%d","%d","%s"`+"\n", r.StartTime, r.EndTime, csvEscape(r.Text))
	}
	return b.String()
}

func csvEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
