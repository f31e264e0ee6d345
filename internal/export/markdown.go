package export

import (
	"fmt"
	"strings"

	"github.com/kokistudios/beodata/internal/query"
)

// Markdown renders a section as a bilingual reading text: each line number
// in bold, the Old English, then the Modern English in italics.
func Markdown(sl query.SectionLines) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sl.Name)
	if sl.Absent {
		b.WriteString("_This section has no lines in the edition._\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Lines %d–%d\n\n", sl.Start, sl.End)
	for _, l := range sl.Lines {
		if l.Absent {
			fmt.Fprintf(&b, "**%d** _(line absent from the edition)_\n\n", l.Number)
			continue
		}
		fmt.Fprintf(&b, "**%d** %s  \n_%s_\n\n", l.Number, l.OldEnglish, l.ModernEnglish)
	}
	return b.String()
}
