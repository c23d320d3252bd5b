package extract

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Entry maps a surface term to the label reported on a match.
type Entry struct {
	Term  string
	Label string
}

// Lexicon finds dictionary terms in text in a single pass.
type Lexicon struct {
	// Match mutates matcher state, so calls are serialized.
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	terms   []string
	labels  []string
}

// NewLexicon builds the automaton; terms are matched case-insensitively.
func NewLexicon(entries []Entry) *Lexicon {
	lex := &Lexicon{}
	for _, e := range entries {
		term := strings.ToLower(strings.TrimSpace(e.Term))
		if term == "" {
			continue
		}
		label := e.Label
		if label == "" {
			label = e.Term
		}
		lex.terms = append(lex.terms, term)
		lex.labels = append(lex.labels, label)
	}
	if len(lex.terms) > 0 {
		lex.matcher = ahocorasick.NewStringMatcher(lex.terms)
	}
	return lex
}

// NewTermLexicon builds a lexicon whose labels are the terms themselves.
func NewTermLexicon(terms ...string) *Lexicon {
	entries := make([]Entry, 0, len(terms))
	for _, t := range terms {
		entries = append(entries, Entry{Term: t, Label: t})
	}
	return NewLexicon(entries)
}

// Find returns the distinct labels found in text. Terms contained in a longer
// matched term are dropped, so "한국산업은행" does not also report "산업은행".
func (l *Lexicon) Find(text string) []string {
	hits := l.hitTerms(text)
	if len(hits) == 0 {
		return nil
	}

	labels := make([]string, 0, len(hits))
	seen := map[string]struct{}{}
	for _, idx := range hits {
		if shadowed(l.terms[idx], hits, l.terms) {
			continue
		}
		label := l.labels[idx]
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// Contains reports whether any term occurs in text.
func (l *Lexicon) Contains(text string) bool {
	return len(l.hitTerms(text)) > 0
}

// Mask replaces every matched term in text with spaces of equal byte length.
func (l *Lexicon) Mask(text string) string {
	hits := l.hitTerms(text)
	if len(hits) == 0 {
		return text
	}
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		return text
	}
	out := []byte(text)
	for _, idx := range hits {
		term := l.terms[idx]
		for start := 0; ; {
			pos := strings.Index(lower[start:], term)
			if pos < 0 {
				break
			}
			pos += start
			for i := pos; i < pos+len(term); i++ {
				out[i] = ' '
			}
			start = pos + len(term)
		}
	}
	return string(out)
}

func (l *Lexicon) hitTerms(text string) []int {
	if l == nil || l.matcher == nil || text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.matcher.Match([]byte(lower))
}

func shadowed(term string, hits []int, terms []string) bool {
	for _, other := range hits {
		candidate := terms[other]
		if candidate != term && strings.Contains(candidate, term) {
			return true
		}
	}
	return false
}

// DefaultInvestors is the corpus-derived investor lexicon used without an LLM.
var DefaultInvestors = []Entry{
	{Term: "카카오벤처스", Label: "카카오벤처스"},
	{Term: "카카오인베스트먼트", Label: "카카오인베스트먼트"},
	{Term: "알토스벤처스", Label: "알토스벤처스"},
	{Term: "소프트뱅크벤처스", Label: "소프트뱅크벤처스"},
	{Term: "한국투자파트너스", Label: "한국투자파트너스"},
	{Term: "한국투자액셀러레이터", Label: "한국투자액셀러레이터"},
	{Term: "KB인베스트먼트", Label: "KB인베스트먼트"},
	{Term: "스톤브릿지벤처스", Label: "스톤브릿지벤처스"},
	{Term: "스톤브릿지캐피탈", Label: "스톤브릿지캐피탈"},
	{Term: "인터베스트", Label: "인터베스트"},
	{Term: "캡스톤파트너스", Label: "캡스톤파트너스"},
	{Term: "본엔젤스", Label: "본엔젤스"},
	{Term: "매쉬업벤처스", Label: "매쉬업벤처스"},
	{Term: "매쉬업엔젤스", Label: "매쉬업벤처스"},
	{Term: "프라이머", Label: "프라이머"},
	{Term: "스파크랩", Label: "스파크랩"},
	{Term: "퓨처플레이", Label: "퓨처플레이"},
	{Term: "블루포인트파트너스", Label: "블루포인트파트너스"},
	{Term: "DSC인베스트먼트", Label: "DSC인베스트먼트"},
	{Term: "에이티넘인베스트먼트", Label: "에이티넘인베스트먼트"},
	{Term: "LB인베스트먼트", Label: "LB인베스트먼트"},
	{Term: "미래에셋벤처투자", Label: "미래에셋벤처투자"},
	{Term: "미래에셋캐피탈", Label: "미래에셋캐피탈"},
	{Term: "삼성벤처투자", Label: "삼성벤처투자"},
	{Term: "네이버 D2SF", Label: "네이버 D2SF"},
	{Term: "D2SF", Label: "네이버 D2SF"},
	{Term: "킹슬리벤처스", Label: "킹슬리벤처스"},
	{Term: "하나벤처스", Label: "하나벤처스"},
	{Term: "신한벤처투자", Label: "신한벤처투자"},
	{Term: "우리벤처파트너스", Label: "우리벤처파트너스"},
	{Term: "IBK기업은행", Label: "IBK기업은행"},
	{Term: "IBK캐피탈", Label: "IBK캐피탈"},
	{Term: "한국산업은행", Label: "산업은행"},
	{Term: "산업은행", Label: "산업은행"},
	{Term: "컴퍼니케이파트너스", Label: "컴퍼니케이파트너스"},
	{Term: "뮤렉스파트너스", Label: "뮤렉스파트너스"},
	{Term: "베이스인베스트먼트", Label: "베이스인베스트먼트"},
	{Term: "롯데벤처스", Label: "롯데벤처스"},
	{Term: "씨엔티테크", Label: "씨엔티테크"},
	{Term: "인포뱅크", Label: "인포뱅크"},
	{Term: "더벤처스", Label: "더벤처스"},
	{Term: "젠엑시스", Label: "젠엑시스"},
	{Term: "에이벤처스", Label: "에이벤처스"},
	{Term: "위벤처스", Label: "위벤처스"},
	{Term: "굿워터캐피탈", Label: "굿워터캐피탈"},
	{Term: "코오롱인베스트먼트", Label: "코오롱인베스트먼트"},
	{Term: "SBI인베스트먼트", Label: "SBI인베스트먼트"},
	{Term: "스마일게이트인베스트먼트", Label: "스마일게이트인베스트먼트"},
	{Term: "IMM인베스트먼트", Label: "IMM인베스트먼트"},
	{Term: "대성창업투자", Label: "대성창업투자"},
	{Term: "HB인베스트먼트", Label: "HB인베스트먼트"},
	{Term: "아주IB투자", Label: "아주IB투자"},
	{Term: "BNK벤처투자", Label: "BNK벤처투자"},
	{Term: "포스코기술투자", Label: "포스코기술투자"},
	{Term: "GS벤처스", Label: "GS벤처스"},
	{Term: "신용보증기금", Label: "신용보증기금"},
	{Term: "기술보증기금", Label: "기술보증기금"},
	{Term: "중소벤처기업진흥공단", Label: "중소벤처기업진흥공단"},
	{Term: "디캠프", Label: "디캠프"},
	{Term: "쿨리지코너인베스트먼트", Label: "쿨리지코너인베스트먼트"},
	{Term: "SV인베스트먼트", Label: "SV인베스트먼트"},
	{Term: "TBT", Label: "TBT"},
	{Term: "NH투자증권", Label: "NH투자증권"},
	{Term: "KDB산업은행", Label: "산업은행"},
	{Term: "한화투자증권", Label: "한화투자증권"},
	{Term: "유안타인베스트먼트", Label: "유안타인베스트먼트"},
	{Term: "티인베스트먼트", Label: "티인베스트먼트"},
	{Term: "엔젤로보틱스", Label: "엔젤로보틱스"},
	{Term: "빅베이슨캐피탈", Label: "빅베이슨캐피탈"},
	{Term: "하나증권", Label: "하나증권"},
	{Term: "임팩트스퀘어", Label: "임팩트스퀘어"},
	{Term: "라구나인베스트먼트", Label: "라구나인베스트먼트"},
	{Term: "마그나인베스트먼트", Label: "마그나인베스트먼트"},
	{Term: "나우IB캐피탈", Label: "나우IB캐피탈"},
	{Term: "Altos Ventures", Label: "알토스벤처스"},
	{Term: "SoftBank Ventures", Label: "소프트뱅크벤처스"},
	{Term: "Sequoia", Label: "세쿼이아캐피탈"},
}

// DefaultIndustries maps industry keywords to a stable label.
var DefaultIndustries = []Entry{
	{Term: "인공지능", Label: "AI"},
	{Term: "AI", Label: "AI"},
	{Term: "생성형", Label: "AI"},
	{Term: "LLM", Label: "AI"},
	{Term: "헬스케어", Label: "헬스케어"},
	{Term: "디지털헬스", Label: "헬스케어"},
	{Term: "의료", Label: "헬스케어"},
	{Term: "바이오", Label: "바이오"},
	{Term: "신약", Label: "바이오"},
	{Term: "핀테크", Label: "핀테크"},
	{Term: "모빌리티", Label: "모빌리티"},
	{Term: "자율주행", Label: "모빌리티"},
	{Term: "이커머스", Label: "커머스"},
	{Term: "커머스", Label: "커머스"},
	{Term: "에듀테크", Label: "에듀테크"},
	{Term: "교육", Label: "에듀테크"},
	{Term: "푸드테크", Label: "푸드테크"},
	{Term: "프롭테크", Label: "프롭테크"},
	{Term: "게임", Label: "게임"},
	{Term: "콘텐츠", Label: "콘텐츠"},
	{Term: "로봇", Label: "로보틱스"},
	{Term: "로보틱스", Label: "로보틱스"},
	{Term: "반도체", Label: "반도체"},
	{Term: "배터리", Label: "에너지"},
	{Term: "에너지", Label: "에너지"},
	{Term: "기후테크", Label: "기후테크"},
	{Term: "클린테크", Label: "기후테크"},
	{Term: "SaaS", Label: "SaaS"},
	{Term: "물류", Label: "물류"},
	{Term: "뷰티", Label: "뷰티"},
	{Term: "보안", Label: "보안"},
	{Term: "블록체인", Label: "블록체인"},
	{Term: "우주", Label: "우주항공"},
	{Term: "드론", Label: "우주항공"},
	{Term: "애그테크", Label: "애그테크"},
	{Term: "펫테크", Label: "펫테크"},
	{Term: "HR테크", Label: "HR테크"},
	{Term: "리걸테크", Label: "리걸테크"},
	{Term: "여행", Label: "여행"},
	{Term: "패션", Label: "패션"},
}

// DefaultLocations are places that count as a location mention.
var DefaultLocations = []string{
	"서울", "판교", "성수", "강남", "부산", "대구", "대전", "광주", "인천", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
	"미국", "실리콘밸리", "일본", "싱가포르", "베트남", "인도네시아", "중국", "유럽", "독일", "영국",
}
