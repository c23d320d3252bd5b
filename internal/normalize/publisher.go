package normalize

import (
	"strings"
)

// Reserved aggregator labels; they must never be persisted as a publisher.
const (
	LabelNaverNews   = "Naver News"
	LabelGoogleNews  = "Google News"
	LabelVCPortfolio = "VC Portfolio"
)

var aggregatorLabels = map[string]struct{}{
	"navernews":   {},
	"네이버뉴스":       {},
	"네이버":         {},
	"naver":       {},
	"googlenews":  {},
	"구글뉴스":        {},
	"google":      {},
	"vcportfolio": {},
	"다음뉴스":        {},
	"daumnews":    {},
	"다음":          {},
}

// IsAggregatorLabel reports whether name is one of the reserved aggregator labels,
// ignoring case and whitespace.
func IsAggregatorLabel(name string) bool {
	key := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if key == "" {
		return false
	}
	_, ok := aggregatorLabels[key]
	return ok
}

// hostPublishers maps a publisher host (without www./m.) to its display name.
var hostPublishers = map[string]string{
	"wowtale.net":           "WOWTALE",
	"venturesquare.net":     "벤처스퀘어",
	"platum.kr":             "플래텀",
	"thevc.kr":              "더벨",
	"thebell.co.kr":         "더벨",
	"startuptoday.kr":       "스타트업투데이",
	"startuptoday.co.kr":    "스타트업투데이",
	"outstanding.kr":        "아웃스탠딩",
	"etoday.co.kr":          "이투데이",
	"mt.co.kr":              "머니투데이",
	"news.mt.co.kr":         "머니투데이",
	"unicornfactory.co.kr":  "유니콘팩토리",
	"hankyung.com":          "한국경제",
	"mk.co.kr":              "매일경제",
	"sedaily.com":           "서울경제",
	"edaily.co.kr":          "이데일리",
	"chosun.com":            "조선일보",
	"biz.chosun.com":        "조선비즈",
	"joongang.co.kr":        "중앙일보",
	"donga.com":             "동아일보",
	"zdnet.co.kr":           "지디넷코리아",
	"etnews.com":            "전자신문",
	"bloter.net":            "블로터",
	"besuccess.com":         "비석세스",
	"yna.co.kr":             "연합뉴스",
	"newsis.com":            "뉴시스",
	"news1.kr":              "뉴스1",
	"asiae.co.kr":           "아시아경제",
	"fnnews.com":            "파이낸셜뉴스",
	"heraldcorp.com":        "헤럴드경제",
	"dt.co.kr":              "디지털타임스",
	"ddaily.co.kr":          "디지털데일리",
	"it.chosun.com":         "IT조선",
	"byline.network":        "바이라인네트워크",
	"investchosun.com":      "인베스트조선",
	"dealsite.co.kr":        "딜사이트",
	"news.einfomax.co.kr":   "연합인포맥스",
	"econovill.com":         "이코노믹리뷰",
	"thepublic.kr":          "더퍼블릭",
	"venturesquare.co.kr":   "벤처스퀘어",
	"startupn.kr":           "스타트업엔",
	"dailian.co.kr":         "데일리안",
	"ajunews.com":           "아주경제",
	"hani.co.kr":            "한겨레",
	"khan.co.kr":            "경향신문",
	"inews24.com":           "아이뉴스24",
	"newspim.com":           "뉴스핌",
	"businesspost.co.kr":    "비즈니스포스트",
	"mbn.co.kr":             "MBN",
	"techm.kr":              "테크M",
	"digitaltoday.co.kr":    "디지털투데이",
	"aitimes.com":           "AI타임스",
	"hellot.net":            "헬로티",
	"thelec.kr":             "디일렉",
	"kmib.co.kr":            "국민일보",
	"seoul.co.kr":           "서울신문",
	"munhwa.com":            "문화일보",
	"segye.com":             "세계일보",
	"hankookilbo.com":       "한국일보",
	"nocutnews.co.kr":       "노컷뉴스",
	"wikitree.co.kr":        "위키트리",
	"sisajournal-e.com":     "시사저널e",
	"greenpostkorea.co.kr":  "그린포스트코리아",
	"pinpointnews.co.kr":    "핀포인트뉴스",
	"medicaltimes.com":      "메디칼타임즈",
	"hitnews.co.kr":         "히트뉴스",
	"biospectator.com":      "바이오스펙테이터",
	"dailypharm.com":        "데일리팜",
	"mobiinside.co.kr":      "모비인사이드",
	"the-pr.co.kr":          "더피알",
	"news.bizwatch.co.kr":   "비즈워치",
	"bizwatch.co.kr":        "비즈워치",
	"economist.co.kr":       "이코노미스트",
	"korea.kr":              "대한민국 정책브리핑",
	"koreaherald.com":       "코리아헤럴드",
	"koreatimes.co.kr":      "코리아타임스",
}

// PublisherForHost resolves a publisher from the static host table.
// Subdomains fall back to their registrable parent.
func PublisherForHost(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	for host != "" {
		if name, ok := hostPublishers[host]; ok {
			return name, true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if !strings.Contains(host, ".") {
			break
		}
	}
	return "", false
}

// publisherRanks is the tie-break preference; lower wins.
var publisherRanks = map[string]int{
	"WOWTALE": 0,
	"벤처스퀘어":   1,
	"더벨":      2,
	"플래텀":     3,
	"스타트업투데이": 4,
	"아웃스탠딩":   5,
}

// OtherPublisherRank is the rank of every publisher outside the preference list.
const OtherPublisherRank = 6

// PublisherRank returns the static preference of a publisher; lower is preferred.
func PublisherRank(name string) int {
	if rank, ok := publisherRanks[strings.TrimSpace(name)]; ok {
		return rank
	}
	if strings.EqualFold(strings.TrimSpace(name), "wowtale") {
		return 0
	}
	return OtherPublisherRank
}

// TitleTail returns the publisher suffix of a page title such as "헤드라인 - 머니투데이".
func TitleTail(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range []string{" - ", " | ", " :: "} {
		idx := strings.LastIndex(title, sep)
		if idx < 0 {
			continue
		}
		tail := strings.TrimSpace(title[idx+len(sep):])
		if tail != "" && len([]rune(tail)) <= 20 {
			return tail
		}
	}
	return ""
}

// cleanPublisher drops portal suffixes such as "머니투데이 | 네이버".
func cleanPublisher(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, "|"); idx > 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}
