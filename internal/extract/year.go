package extract

// UnknownYear is reported when a document contains no 19xx/20xx token.
const UnknownYear = "Unknown Year"

// YearScanner finds the first four-digit token starting with 19 or 20 that
// follows a word boundary. It is an io.Writer so it can sit behind an
// io.TeeReader while the parser consumes the same bytes; nothing is
// buffered beyond the current candidate.
type YearScanner struct {
	lastWord bool
	cand     [4]byte
	n        int
	year     string
}

func (s *YearScanner) Write(p []byte) (int, error) {
	if s.year != "" {
		return len(p), nil
	}
	for _, b := range p {
		if s.feed(b) {
			break
		}
	}
	return len(p), nil
}

// WriteString feeds text produced by a parser rather than raw bytes.
func (s *YearScanner) WriteString(text string) {
	if s.year != "" {
		return
	}
	for i := 0; i < len(text); i++ {
		if s.feed(text[i]) {
			return
		}
	}
}

// Year returns the first match, or UnknownYear.
func (s *YearScanner) Year() string {
	if s.year == "" {
		return UnknownYear
	}
	return s.year
}

// Found reports whether a year has been matched.
func (s *YearScanner) Found() bool { return s.year != "" }

func (s *YearScanner) feed(b byte) bool {
	switch s.n {
	case 0:
		if (b == '1' || b == '2') && !s.lastWord {
			s.cand[0] = b
			s.n = 1
		}
	case 1:
		if (s.cand[0] == '1' && b == '9') || (s.cand[0] == '2' && b == '0') {
			s.cand[1] = b
			s.n = 2
		} else {
			s.n = 0
		}
	default:
		if isDigit(b) {
			s.cand[s.n] = b
			s.n++
			if s.n == 4 {
				s.year = string(s.cand[:])
				return true
			}
		} else {
			s.n = 0
		}
	}
	s.lastWord = isWordByte(b)
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// isWordByte treats ASCII letters, digits and underscore as word characters.
func isWordByte(b byte) bool {
	return isDigit(b) || b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
