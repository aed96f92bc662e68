package classify

// LanguageUnknown is reported when no stopword set covers enough of the text.
const LanguageUnknown = "unknown"

// minStopwordRatio is the share of tokens that must be stopwords of the
// winning language before a language is reported.
const minStopwordRatio = 0.05

var stopwords = map[string]map[string]struct{}{
	"en": set("the", "and", "of", "to", "a", "in", "is", "you", "that", "for", "with", "are", "on", "as", "be", "our", "will", "we", "this", "or", "an", "your", "at", "by", "from", "have", "has", "it", "who", "what"),
	"es": set("el", "la", "de", "que", "y", "en", "los", "las", "del", "se", "por", "un", "una", "con", "para", "es", "al", "lo", "como", "más", "su", "sus", "nuestro", "experiencia", "trabajo"),
	"fr": set("le", "la", "les", "de", "des", "et", "en", "un", "une", "du", "est", "pour", "que", "qui", "dans", "sur", "au", "avec", "vous", "nous", "votre", "notre", "poste", "ce"),
	"de": set("der", "die", "das", "und", "in", "zu", "den", "von", "mit", "ist", "sie", "wir", "für", "auf", "dem", "des", "ein", "eine", "nicht", "sich", "bei", "oder", "ihre", "unser"),
}

// languageOrder breaks ties deterministically.
var languageOrder = []string{"en", "es", "fr", "de"}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// DetectLanguage guesses the language of pre-tokenized lowercase words by
// stopword frequency.
func DetectLanguage(words []string) string {
	if len(words) == 0 {
		return LanguageUnknown
	}
	best, bestHits := LanguageUnknown, 0
	for _, lang := range languageOrder {
		sw := stopwords[lang]
		hits := 0
		for _, w := range words {
			if _, ok := sw[w]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	if float64(bestHits)/float64(len(words)) < minStopwordRatio {
		return LanguageUnknown
	}
	return best
}
