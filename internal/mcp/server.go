package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kokistudios/beodata/internal/align"
	"github.com/kokistudios/beodata/internal/lexicon"
	"github.com/kokistudios/beodata/internal/query"
	"github.com/kokistudios/beodata/internal/token"
	"github.com/kokistudios/beodata/internal/ui"
)

// Server wraps the MCP server with the corpus query engine.
type Server struct {
	engine *query.Engine
	server *mcp.Server
}

// NewServer creates a new beodata MCP server.
func NewServer(engine *query.Engine, version string) *Server {
	s := &Server{engine: engine}

	impl := &mcp.Implementation{
		Name:    "beodata",
		Version: version,
	}

	s.server = mcp.NewServer(impl, nil)
	s.registerTools()

	return s
}

// Run starts the MCP server on stdio.
func (s *Server) Run(ctx context.Context) error {
	ui.Logger.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all corpus tools to the MCP server.
func (s *Server) registerTools() {
	// Bilingual edition
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_beowulf_lines",
		Description: "Get Beowulf lines (Old English and Modern English) for an inclusive line range. Omit both bounds for the whole poem; a lone from runs to the last line. Lines missing from the edition are returned as placeholders marked absent.",
	}, s.handleLines)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_beowulf_summary",
		Description: "Get summary statistics about the Beowulf text: line range, absent lines and sections, section titles, token count, coverage warnings, and an evenly spaced sample of lines.",
	}, s.handleSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_fitt_lines",
		Description: "Get Beowulf lines for a specific fitt (section). Fitt 24 does not exist in the poem and returns an empty, absent section.",
	}, s.handleFittLines)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "heorot_search",
		Description: "Search the bilingual Beowulf text for a term (case-insensitive). Restrict to Old English with language 'oe' or Modern English with 'me'; omit to search both.",
	}, s.handleLineSearch)

	// Bosworth-Toller dictionary
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bt_lookup",
		Description: "Look up an exact Old English headword in the Bosworth-Toller dictionary. Length marks and case are ignored.",
	}, s.handleDictionaryLookup)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bt_lookup_like",
		Description: "Look up Bosworth-Toller headwords starting with a prefix (e.g. 'cyn' or 'cyn%'), ordered by headword.",
	}, s.handleDictionaryLookupLike)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bt_search",
		Description: "Full-text search across Bosworth-Toller entries. Restrict to one column (headword, definition, references) or omit to search all.",
	}, s.handleDictionarySearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bt_abbreviation",
		Description: "Look up Bosworth-Toller abbreviations by partial match (e.g. 'Beo.' to find Beowulf references).",
	}, s.handleAbbreviationSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "bt_abbreviation_expand",
		Description: "Expand one exact Bosworth-Toller abbreviation (e.g. 'Beo. Th.').",
	}, s.handleAbbreviationExpand)

	// Brunetti token annotation
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "brunetti_lookup",
		Description: "Look up every annotated token of an exact Old English lemma in the Brunetti tokenized Beowulf.",
	}, s.handleTokensByLemma)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "brunetti_lookup_like",
		Description: "Look up tokens whose lemma starts with a prefix (e.g. 'cyn%'), ordered by lemma.",
	}, s.handleTokensByLemmaPrefix)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "brunetti_search",
		Description: "Search token fields for a term. Restrict to one column (" + strings.Join(query.TokenFields, ", ") + ") or omit to search all.",
	}, s.handleTokenSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "brunetti_get_by_line",
		Description: "Get all Brunetti tokens for a line number ('1' or zero-padded '0001'), in half-line and offset order.",
	}, s.handleTokensByLine)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "brunetti_get_by_fitt",
		Description: "Get all Brunetti tokens the annotation assigns to a fitt number. The annotation numbers fitts on its own, so ids may differ from get_fitt_lines after fitt 23.",
	}, s.handleTokensByFitt)

	// Half-line verse queries
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verse_half_lines",
		Description: "Get the verse half-lines (a and b verses) for an inclusive line range. Title lines and non-verse tokens are excluded.",
	}, s.handleHalfLines)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verse_by_lemma",
		Description: "Find verse half-lines containing a token of the given lemma. Title lines and non-verse tokens never match.",
	}, s.handleVerseByLemma)
}

// LinesArgs is the input of get_beowulf_lines.
type LinesArgs struct {
	From *int `json:"from,omitempty" jsonschema:"Start line number (inclusive). Defaults to the first line."`
	To   *int `json:"to,omitempty" jsonschema:"End line number (inclusive). Defaults to the last line."`
}

// LinesResult carries an ordered run of lines.
type LinesResult struct {
	Count int          `json:"count"`
	Lines []query.Line `json:"lines"`
}

func (s *Server) handleLines(ctx context.Context, req *mcp.CallToolRequest, args LinesArgs) (*mcp.CallToolResult, any, error) {
	m := s.engine.Model()
	from, to := m.First(), m.Last()
	if args.From != nil {
		from = *args.From
	}
	if args.To != nil {
		to = *args.To
	}
	lines, err := s.engine.GetLines(from, to)
	if err != nil {
		return nil, nil, err
	}
	return nil, LinesResult{Count: len(lines), Lines: lines}, nil
}

// SummaryArgs is the input of get_beowulf_summary.
type SummaryArgs struct{}

func (s *Server) handleSummary(ctx context.Context, req *mcp.CallToolRequest, args SummaryArgs) (*mcp.CallToolResult, any, error) {
	return nil, s.engine.Summary(), nil
}

// FittArgs is the input of get_fitt_lines.
type FittArgs struct {
	FittNumber int `json:"fitt_number" jsonschema:"Fitt number to retrieve (0-43)"`
}

func (s *Server) handleFittLines(ctx context.Context, req *mcp.CallToolRequest, args FittArgs) (*mcp.CallToolResult, any, error) {
	sl, err := s.engine.GetSection(args.FittNumber)
	if err != nil {
		return nil, nil, err
	}
	return nil, sl, nil
}

// LineSearchArgs is the input of heorot_search.
type LineSearchArgs struct {
	Term     string `json:"term" jsonschema:"The term to search for (case-insensitive)"`
	Language string `json:"language,omitempty" jsonschema:"Restrict to 'oe' (Old English) or 'me' (Modern English). Omit to search both."`
}

var languageFields = map[string]string{
	"":   "",
	"oe": query.FieldOldEnglish,
	"me": query.FieldModernEnglish,
}

func (s *Server) handleLineSearch(ctx context.Context, req *mcp.CallToolRequest, args LineSearchArgs) (*mcp.CallToolResult, any, error) {
	field, ok := languageFields[strings.ToLower(args.Language)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: language must be 'oe' or 'me', got %q", query.ErrInvalidQuery, args.Language)
	}
	lines, err := s.engine.SearchLines(args.Term, field)
	if err != nil {
		return nil, nil, err
	}
	return nil, LinesResult{Count: len(lines), Lines: lines}, nil
}

// WordArgs is the input of bt_lookup.
type WordArgs struct {
	Word string `json:"word" jsonschema:"The Old English word to look up"`
}

// PatternArgs is the input of the *_lookup_like tools.
type PatternArgs struct {
	Pattern string `json:"pattern" jsonschema:"Prefix to match, with an optional trailing % or * (e.g. 'cyn%')"`
}

// SearchArgs is the input of the full-text search tools.
type SearchArgs struct {
	Term   string `json:"term" jsonschema:"The term to search for (case-insensitive)"`
	Column string `json:"column,omitempty" jsonschema:"Restrict the search to one column. Omit to search all columns."`
}

// EntriesResult carries dictionary entries.
type EntriesResult struct {
	Count   int             `json:"count"`
	Entries []lexicon.Entry `json:"entries"`
}

func entries(res []lexicon.Entry, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	return nil, EntriesResult{Count: len(res), Entries: res}, nil
}

func (s *Server) handleDictionaryLookup(ctx context.Context, req *mcp.CallToolRequest, args WordArgs) (*mcp.CallToolResult, any, error) {
	return entries(s.engine.DictionaryLookup(args.Word))
}

func (s *Server) handleDictionaryLookupLike(ctx context.Context, req *mcp.CallToolRequest, args PatternArgs) (*mcp.CallToolResult, any, error) {
	return entries(s.engine.DictionaryLookupLike(args.Pattern))
}

func (s *Server) handleDictionarySearch(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	return entries(s.engine.DictionarySearch(args.Term, args.Column))
}

// AbbreviationArgs is the input of the bt_abbreviation tools.
type AbbreviationArgs struct {
	Abbrev string `json:"abbrev" jsonschema:"The abbreviation to look up"`
}

// AbbreviationsResult carries matched abbreviations.
type AbbreviationsResult struct {
	Count         int                    `json:"count"`
	Abbreviations []lexicon.Abbreviation `json:"abbreviations"`
}

func (s *Server) handleAbbreviationSearch(ctx context.Context, req *mcp.CallToolRequest, args AbbreviationArgs) (*mcp.CallToolResult, any, error) {
	res, err := s.engine.SearchAbbreviations(args.Abbrev)
	if err != nil {
		return nil, nil, err
	}
	return nil, AbbreviationsResult{Count: len(res), Abbreviations: res}, nil
}

func (s *Server) handleAbbreviationExpand(ctx context.Context, req *mcp.CallToolRequest, args AbbreviationArgs) (*mcp.CallToolResult, any, error) {
	ab, err := s.engine.ExpandAbbreviation(args.Abbrev)
	if err != nil {
		return nil, nil, err
	}
	return nil, ab, nil
}

// LemmaArgs is the input of the lemma tools.
type LemmaArgs struct {
	Lemma string `json:"lemma" jsonschema:"The Old English lemma to look up"`
}

// TokensResult carries annotated tokens.
type TokensResult struct {
	Count  int            `json:"count"`
	Tokens []*token.Token `json:"tokens"`
}

func tokens(res []*token.Token, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	if res == nil {
		res = []*token.Token{}
	}
	return nil, TokensResult{Count: len(res), Tokens: res}, nil
}

func (s *Server) handleTokensByLemma(ctx context.Context, req *mcp.CallToolRequest, args LemmaArgs) (*mcp.CallToolResult, any, error) {
	return tokens(s.engine.TokensByLemma(args.Lemma))
}

func (s *Server) handleTokensByLemmaPrefix(ctx context.Context, req *mcp.CallToolRequest, args PatternArgs) (*mcp.CallToolResult, any, error) {
	return tokens(s.engine.TokensByLemmaPrefix(args.Pattern))
}

func (s *Server) handleTokenSearch(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	return tokens(s.engine.SearchTokens(args.Term, args.Column))
}

// LineIDArgs is the input of brunetti_get_by_line.
type LineIDArgs struct {
	LineID string `json:"line_id" jsonschema:"Line number, plain or zero-padded (e.g. '0001')"`
}

func (s *Server) handleTokensByLine(ctx context.Context, req *mcp.CallToolRequest, args LineIDArgs) (*mcp.CallToolResult, any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(args.LineID))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: line_id %q is not a number", query.ErrInvalidQuery, args.LineID)
	}
	return tokens(s.engine.TokensByLine(n))
}

// FittIDArgs is the input of brunetti_get_by_fitt.
type FittIDArgs struct {
	FittID int `json:"fitt_id" jsonschema:"Annotation fitt number"`
}

func (s *Server) handleTokensByFitt(ctx context.Context, req *mcp.CallToolRequest, args FittIDArgs) (*mcp.CallToolResult, any, error) {
	return tokens(s.engine.TokensBySection(args.FittID))
}

// RangeArgs is the input of verse_half_lines.
type RangeArgs struct {
	From int `json:"from" jsonschema:"Start line number (inclusive)"`
	To   int `json:"to" jsonschema:"End line number (inclusive)"`
}

// HalfLine is a verse half-line with its rendered text.
type HalfLine struct {
	align.HalfLine
	Text string `json:"text"`
}

// HalfLinesResult carries verse half-lines.
type HalfLinesResult struct {
	Count     int        `json:"count"`
	HalfLines []HalfLine `json:"half_lines"`
}

func halfLines(res []align.HalfLine, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, err
	}
	out := make([]HalfLine, len(res))
	for i, h := range res {
		out[i] = HalfLine{HalfLine: h, Text: h.Text()}
	}
	return nil, HalfLinesResult{Count: len(out), HalfLines: out}, nil
}

func (s *Server) handleHalfLines(ctx context.Context, req *mcp.CallToolRequest, args RangeArgs) (*mcp.CallToolResult, any, error) {
	return halfLines(s.engine.HalfLines(args.From, args.To))
}

func (s *Server) handleVerseByLemma(ctx context.Context, req *mcp.CallToolRequest, args LemmaArgs) (*mcp.CallToolResult, any, error) {
	return halfLines(s.engine.VerseByLemma(args.Lemma))
}
