package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/export"
	"github.com/kokistudios/beodata/internal/lexicon"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/token"
	"github.com/kokistudios/beodata/internal/ui"
)

func atoiArg(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, v)
	}
	return n, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printLines(lines []query.Line) {
	verses := make([]ui.Verse, len(lines))
	for i, l := range lines {
		verses[i] = ui.Verse{
			Number:        l.Number,
			OldEnglish:    l.OldEnglish,
			ModernEnglish: l.ModernEnglish,
			Title:         l.Title,
			Absent:        l.Absent,
		}
	}
	ui.Bilingual(verses)
}

func printTokens(toks []*token.Token) {
	if len(toks) == 0 {
		ui.EmptyState("No tokens.")
		return
	}
	rows := make([][]string, len(toks))
	for i, t := range toks {
		rows[i] = []string{t.ID(), strconv.Itoa(t.Section), t.Display(), t.Lemma, t.POS, t.Parse, truncate(t.Gloss, 40)}
	}
	ui.Table([]string{"ID", "FITT", "TEXT", "LEMMA", "POS", "PARSE", "GLOSS"}, rows)
}

func printEntries(entries []lexicon.Entry) {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Headword, truncate(e.Text, 70), strconv.Itoa(len(e.References))}
	}
	ui.Table([]string{"HEADWORD", "DEFINITION", "REFS"}, rows)
}

func printHalfLines(halves []align.HalfLine) {
	rows := make([][]string, len(halves))
	for i, h := range halves {
		rows[i] = []string{strconv.Itoa(h.Line), string(h.Half), h.Text()}
	}
	ui.Table([]string{"LINE", "HALF", "VERSE"}, rows)
}

func linesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lines <from> [to]",
		Short: "Print a line or an inclusive range of lines",
		Example: `  beodata lines 1 11
  beodata lines 2229 --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := atoiArg("from", args[0])
			if err != nil {
				return err
			}
			to := from
			if len(args) == 2 {
				if to, err = atoiArg("to", args[1]); err != nil {
					return err
				}
			}
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			lines, err := e.GetLines(from, to)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(lines)
			}
			printLines(lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func sectionCmd() *cobra.Command {
	var (
		asJSON bool
		render bool
	)
	cmd := &cobra.Command{
		Use:     "section <id>",
		Aliases: []string{"fitt"},
		Short:   "Print every line of a section (fitt)",
		Example: `  beodata section 0
  beodata section 12 --render`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := atoiArg("id", args[0])
			if err != nil {
				return err
			}
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			sl, err := e.GetSection(id)
			if err != nil {
				return err
			}
			switch {
			case asJSON:
				return printJSON(sl)
			case render:
				fmt.Print(ui.RenderMarkdown(export.Markdown(sl)))
				return nil
			}
			ui.SectionHeader(fmt.Sprintf("%d · %s", sl.ID, sl.Name))
			if sl.Absent {
				ui.EmptyState("This section has no lines in the edition.")
				return nil
			}
			printLines(sl.Lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&render, "render", false, "Render as formatted markdown")
	return cmd
}

func summaryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show corpus statistics and coverage warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			s := e.Summary()
			if asJSON {
				return printJSON(s)
			}
			ui.CommandBanner("SUMMARY", fmt.Sprintf("lines %d-%d", s.FirstLine, s.LastLine))
			ui.Fields(
				ui.Field{Key: "Lines", Value: fmt.Sprintf("%d (%d present)", s.TotalLines, s.PresentLines)},
				ui.Field{Key: "Absent lines", Value: fmt.Sprint(s.AbsentLines)},
				ui.Field{Key: "Title lines", Value: fmt.Sprint(s.TitleLines)},
				ui.Field{Key: "Heading lines", Value: fmt.Sprint(s.HeadingLines)},
				ui.Field{Key: "Sections", Value: fmt.Sprintf("%d (absent: %v)", len(s.Sections), s.AbsentSections)},
				ui.Field{Key: "Tokens", Value: fmt.Sprint(s.Tokens)},
				ui.Field{Key: "Fitt drift", Value: fmt.Sprint(s.Drift)},
				ui.Field{Key: "Dictionary", Value: fmt.Sprint(s.DictionarySize)},
				ui.Field{Key: "Abbreviations", Value: fmt.Sprint(s.Abbreviations)},
			)
			if len(s.Warnings) > 0 {
				ui.Warning(fmt.Sprintf("%d verse lines have no tokens: %v", len(s.Warnings), s.Warnings))
			}
			ui.SectionHeader("Sample")
			printLines(s.Sample)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		asJSON bool
		lang   string
	)
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Find lines whose Old or Modern English text contains a term",
		Example: `  beodata search Grendel
  beodata search hrothgar --lang me`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var field string
			switch strings.ToLower(lang) {
			case "":
			case "oe":
				field = query.FieldOldEnglish
			case "me":
				field = query.FieldModernEnglish
			default:
				return fmt.Errorf("--lang must be oe or me, got %q", lang)
			}
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			lines, err := e.SearchLines(args[0], field)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(lines)
			}
			printLines(lines)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&lang, "lang", "", "Restrict to oe or me")
	return cmd
}

func btCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bt",
		Short: "Query the Bosworth-Toller dictionary",
	}
	var asJSON bool
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON")

	run := func(lookup func(*query.Engine, string) ([]lexicon.Entry, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := lookup(e, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(entries)
			}
			printEntries(entries)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "lookup <headword>",
		Short:   "Exact headword lookup (length marks ignored)",
		Example: "  beodata bt lookup cyning",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]lexicon.Entry, error) {
			return e.DictionaryLookup(q)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "like <prefix>",
		Short:   "Headwords starting with a prefix",
		Example: "  beodata bt like cyn%",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]lexicon.Entry, error) {
			return e.DictionaryLookupLike(q)
		}),
	})

	var field string
	search := &cobra.Command{
		Use:     "search <term>",
		Short:   "Full-text search over entries",
		Example: "  beodata bt search king --field definition",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]lexicon.Entry, error) {
			return e.DictionarySearch(q, field)
		}),
	}
	search.Flags().StringVar(&field, "field", "", "Restrict to headword, definition, or references")
	cmd.AddCommand(search)
	return cmd
}

func abbrevCmd() *cobra.Command {
	var (
		asJSON bool
		search bool
	)
	cmd := &cobra.Command{
		Use:   "abbrev <key>",
		Short: "Expand a Bosworth-Toller abbreviation",
		Example: `  beodata abbrev "Beo. Th."
  beodata abbrev beo --search`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			var res []lexicon.Abbreviation
			if search {
				res, err = e.SearchAbbreviations(args[0])
			} else {
				var ab lexicon.Abbreviation
				ab, err = e.ExpandAbbreviation(args[0])
				res = []lexicon.Abbreviation{ab}
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}
			rows := make([][]string, len(res))
			for i, ab := range res {
				rows[i] = []string{ab.Key, ab.Expansion, truncate(ab.Description, 60)}
			}
			ui.Table([]string{"ABBREVIATION", "EXPANSION", "DESCRIPTION"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&search, "search", false, "Partial match on the abbreviation key")
	return cmd
}

func tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Query the token annotation",
	}
	var asJSON bool
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON")

	run := func(q func(*query.Engine, string) ([]*token.Token, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			toks, err := q(e, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(toks)
			}
			printTokens(toks)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "lemma <lemma>",
		Short: "Every token of an exact lemma",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]*token.Token, error) {
			return e.TokensByLemma(q)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "like <prefix>",
		Short: "Tokens whose lemma starts with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]*token.Token, error) {
			return e.TokensByLemmaPrefix(q)
		}),
	})

	var field string
	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Substring search over token fields",
		Long:  "Substring search over token fields. Fields: " + strings.Join(query.TokenFields, ", ") + ".",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]*token.Token, error) {
			return e.SearchTokens(q, field)
		}),
	}
	search.Flags().StringVar(&field, "field", "", "Restrict to one token field")
	cmd.AddCommand(search)

	cmd.AddCommand(&cobra.Command{
		Use:   "line <n>",
		Short: "Tokens of one line",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]*token.Token, error) {
			n, err := atoiArg("line", q)
			if err != nil {
				return nil, err
			}
			return e.TokensByLine(n)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "section <fitt>",
		Short: "Tokens the annotation assigns to a fitt",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(e *query.Engine, q string) ([]*token.Token, error) {
			n, err := atoiArg("fitt", q)
			if err != nil {
				return nil, err
			}
			return e.TokensBySection(n)
		}),
	})
	return cmd
}

func verseCmd() *cobra.Command {
	var (
		asJSON bool
		lemma  string
	)
	cmd := &cobra.Command{
		Use:   "verse [<from> <to>]",
		Short: "Print verse half-lines for a range, or those containing a lemma",
		Example: `  beodata verse 1 11
  beodata verse --lemma cyning`,
		Args: func(cmd *cobra.Command, args []string) error {
			if lemma != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			var halves []align.HalfLine
			if lemma != "" {
				halves, err = e.VerseByLemma(lemma)
			} else {
				var from, to int
				if from, err = atoiArg("from", args[0]); err != nil {
					return err
				}
				if to, err = atoiArg("to", args[1]); err != nil {
					return err
				}
				halves, err = e.HalfLines(from, to)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(halves)
			}
			printHalfLines(halves)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().StringVar(&lemma, "lemma", "", "Find half-lines containing this lemma")
	return cmd
}
