package ingest

import (
	"bufio"
	"io"
	"strings"
)

// Candidate is one normalized (orderId, email) pair produced by the batch
// ingestion path. It only lives for the duration of a compensation run.
type Candidate struct {
	OrderID string
	Email   string
}

// Scanner turns a line-oriented export (file or stdin) into a lazy, finite,
// non-restartable sequence of candidates. It copes with plain
// "orderId,email" lines, delimited files with or without a header row, and
// mixed delimiters, without being told the shape up front.
type Scanner struct {
	sc        *bufio.Scanner
	prefix    string
	first     bool
	headerSet bool
	orderCol  int
	emailCol  int
	cur       Candidate
	malformed int
}

// headerOrderAliases and headerEmailAliases match normalized header tokens.
// The Indonesian variants come from the dashboard's customer exports.
var (
	headerOrderAliases = map[string]bool{
		"order id":       true,
		"order":          true,
		"invoice":        true,
		"invoice number": true,
	}
	headerEmailAliases = map[string]bool{
		"email":            true,
		"customer email":   true,
		"email pelanggan":  true,
		"e-mail pelanggan": true,
	}
)

func NewScanner(r io.Reader, orderPrefix string) *Scanner {
	if orderPrefix == "" {
		orderPrefix = DefaultOrderPrefix
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Scanner{sc: sc, prefix: orderPrefix, first: true, orderCol: -1, emailCol: -1}
}

// Scan advances to the next candidate. It returns false at end of input or
// on a read error (see Err).
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		line := s.sc.Text()
		if s.first {
			line = strings.TrimPrefix(line, "\uFEFF")
			s.first = false
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitLine(line)
		if len(fields) == 0 {
			continue
		}
		if s.maybeConsumeHeader(fields) {
			continue
		}
		c, ok := s.extract(fields)
		if !ok {
			s.malformed++
			continue
		}
		s.cur = c
		return true
	}
	return false
}

// Candidate returns the candidate produced by the last successful Scan.
func (s *Scanner) Candidate() Candidate { return s.cur }

// Malformed returns how many non-empty lines yielded no usable candidate.
func (s *Scanner) Malformed() int { return s.malformed }

func (s *Scanner) Err() error { return s.sc.Err() }

// maybeConsumeHeader checks whether fields form a recognizable header row.
// Only the first data row is considered; once column roles are known they
// apply to the rest of the stream.
func (s *Scanner) maybeConsumeHeader(fields []string) bool {
	if s.headerSet {
		return false
	}
	s.headerSet = true
	order, email := -1, -1
	for i, f := range fields {
		tok := normalizeHeaderToken(f)
		if order < 0 && headerOrderAliases[tok] {
			order = i
		}
		if email < 0 && headerEmailAliases[tok] {
			email = i
		}
	}
	if order >= 0 && email >= 0 {
		s.orderCol, s.emailCol = order, email
		return true
	}
	return false
}

func (s *Scanner) extract(fields []string) (Candidate, bool) {
	var rawOrder, rawEmail string
	switch {
	case s.orderCol >= 0 && s.emailCol >= 0:
		if s.orderCol >= len(fields) || s.emailCol >= len(fields) {
			return Candidate{}, false
		}
		rawOrder, rawEmail = fields[s.orderCol], fields[s.emailCol]
	default:
		rawOrder, rawEmail = inferRoles(fields, s.prefix)
	}
	c := Candidate{
		OrderID: NormalizeOrderID(rawOrder, s.prefix),
		Email:   NormalizeEmail(rawEmail),
	}
	if c.OrderID == "" {
		return Candidate{}, false
	}
	return c, true
}

// inferRoles decides per-row which field is the email and which the order
// id. An email contains '@' and no whitespace; an order id normalizes to
// something starting with the known prefix. Ambiguous rows fall back to
// positional (orderId, email).
func inferRoles(fields []string, prefix string) (order, email string) {
	orderIdx, emailIdx := -1, -1
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if emailIdx < 0 && looksLikeEmail(f) {
			emailIdx = i
			continue
		}
		if orderIdx < 0 && strings.HasPrefix(strings.ToUpper(NormalizeOrderID(f, prefix)), strings.ToUpper(prefix)) {
			orderIdx = i
		}
	}
	if orderIdx >= 0 && emailIdx >= 0 {
		return fields[orderIdx], fields[emailIdx]
	}
	// Positional default.
	order = fields[0]
	if len(fields) > 1 {
		email = fields[1]
	}
	if emailIdx >= 0 && len(fields) == 1 {
		order = ""
	}
	return order, email
}

func looksLikeEmail(s string) bool {
	return strings.Contains(s, "@") && !strings.ContainsAny(s, " \t")
}

// splitLine auto-detects the delimiter per line by counting occurrences of
// comma, tab and semicolon. Tab wins ties, comma is the default; a line
// with none of the three is split on whitespace.
func splitLine(line string) []string {
	commas := strings.Count(line, ",")
	tabs := strings.Count(line, "\t")
	semis := strings.Count(line, ";")

	var sep string
	switch {
	case tabs > 0 && tabs >= commas && tabs >= semis:
		sep = "\t"
	case semis > 0 && semis > commas:
		sep = ";"
	case commas > 0:
		sep = ","
	default:
		return strings.Fields(line)
	}

	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
	}
	return parts
}

func normalizeHeaderToken(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}
