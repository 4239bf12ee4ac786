// Package penalty maps DRC Mining Code compliance gaps to the financial
// exposure defined by Articles 299-311, adjusted per CAMI Decision
// No. 003/2024.
package penalty

import (
	"fmt"
	"strings"
)

// Info describes the sanction attached to one Mining Code article.
// Exposure calculations use the maximum fine.
type Info struct {
	Article     string
	Description string
	MinFineUSD  float64
	MaxFineUSD  float64
	AppliesTo   string
	LegalRef    string
	Adjustment  string
	keywords    []string
}

// Catalog of assessable penalties. Fraud (Art. 299) and obstruction
// (Art. 306) amounts are excluded: both require criminal investigation
// beyond a compliance audit.
var catalog = map[string]Info{
	"299_excluded": {
		Article:     "299",
		Description: "Illicit exploitation (excluding fraud/pillage aspects)",
		AppliesTo:   "Entity or Individual",
		LegalRef:    "Mining Code + CAMI 003/2024 (Note: Fraud penalties excluded from audit scope)",
		Adjustment:  "Not calculated - requires criminal investigation",
		keywords:    []string{"illegal exploitation", "unauthorized mining", "unlicensed extraction"},
	},
	"299bis": {
		Article:     "299 bis",
		Description: "Human rights violations in mining",
		MinFineUSD:  10000,
		MaxFineUSD:  42912.25,
		AppliesTo:   "Entity",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Indexing clause for daily accrual",
		keywords: []string{"human rights", "forced labor", "child labor", "worker abuse",
			"community displacement", "violence"},
	},
	"300": {
		Article:     "300",
		Description: "Theft, concealment of minerals (& embezzlement, illicit possession and illegal transport per CAMI)",
		MinFineUSD:  10000,
		MaxFineUSD:  85824.43,
		AppliesTo:   "Individual",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Severity-weighted, inflation-indexed",
		keywords: []string{"theft", "concealment", "embezzlement", "illicit possession",
			"illegal transport", "stolen minerals", "hidden minerals"},
	},
	"301": {
		Article:     "301",
		Description: "Administrative/procedural noncompliance (including CAMI category of facilitation of diversion)",
		MinFineUSD:  500,
		MaxFineUSD:  42912.25,
		AppliesTo:   "Entity",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Base fine scaled annually",
		keywords: []string{"administrative", "procedural", "noncompliance", "missing permits",
			"expired licenses", "documentation", "facilitation of diversion"},
	},
	"302": {
		Article:     "302",
		Description: "Unauthorized purchase/sale of minerals",
		MinFineUSD:  10000,
		MaxFineUSD:  128736.67,
		AppliesTo:   "Entity or Individual",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Value-based, adjusted to market value",
		keywords: []string{"unauthorized purchase", "unauthorized sale", "illegal trading",
			"unlicensed buyer", "black market", "informal trading"},
	},
	"303": {
		Article:     "303",
		Description: "Unauthorized detention of minerals",
		MinFineUSD:  5000,
		MaxFineUSD:  25000,
		AppliesTo:   "Individual",
		LegalRef:    "Mining Code",
		Adjustment:  "Standard administrative fines",
		keywords: []string{"unauthorized detention", "illegal storage", "minerals detention",
			"stockpiling without permit"},
	},
	"304": {
		Article:     "304 (&299)",
		Description: "Unauthorized processing/transformation (Illicit activities)",
		MinFineUSD:  10000,
		MaxFineUSD:  1072805.65,
		AppliesTo:   "Entity",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Administrative adjustment",
		keywords: []string{"unauthorized processing", "illegal transformation", "unlicensed refining",
			"illegal smelting", "processing without permit"},
	},
	"305": {
		Article:     "305",
		Description: "Illegal mineral transport or storage (illicit possession/transport)",
		MinFineUSD:  10000,
		MaxFineUSD:  85824.43,
		AppliesTo:   "Entity",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Variable, sector indexed",
		keywords: []string{"illegal transport", "illegal storage", "transport without permit",
			"unauthorized movement", "smuggling", "illicit possession"},
	},
	"306": {
		Article:     "306",
		Description: "Transparency & traceability non-compliance",
		MinFineUSD:  8000,
		MaxFineUSD:  42912.25,
		AppliesTo:   "Entity or Individual",
		LegalRef:    "Mining Code + CAMI 003/2024 (Note: Obstruction penalties up to $4.2M excluded)",
		Adjustment:  "Administrative penalties only - obstruction requires separate assessment",
		keywords: []string{"transparency", "traceability", "reporting", "documentation gaps",
			"incomplete records", "missing data"},
	},
	"307": {
		Article:     "307",
		Description: "Health, safety, environmental violations",
		MinFineUSD:  20000,
		MaxFineUSD:  42912.25,
		AppliesTo:   "Entity",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Administrative decree driven",
		keywords: []string{"health", "safety", "environmental", "pollution", "contamination",
			"safety equipment", "protective gear", "environmental damage", "waste"},
	},
	"308": {
		Article:     "308",
		Description: "Damage to mining infrastructure",
		MinFineUSD:  20000,
		MaxFineUSD:  50000,
		AppliesTo:   "Entity or Individual",
		LegalRef:    "Mining Code",
		Adjustment:  "Criminal code also applies",
		keywords: []string{"infrastructure damage", "equipment damage", "vandalism",
			"destruction of property", "sabotage"},
	},
	"309": {
		Article:     "309",
		Description: "Breach of ministerial/provincial decrees",
		MinFineUSD:  4000,
		MaxFineUSD:  42912.25,
		AppliesTo:   "Entity",
		LegalRef:    "Mining Code+ CAMI 003/2024",
		Adjustment:  "Administrative adjustment",
		keywords: []string{"ministerial decree", "provincial decree", "decree violation",
			"regulatory breach", "government order"},
	},
	"310": {
		Article:     "310",
		Description: "Insult or assault of officials",
		MinFineUSD:  1000,
		MaxFineUSD:  21456.11,
		AppliesTo:   "Individual",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Judicial penalties, no adjustment",
		keywords: []string{"insult", "assault", "official", "violence against inspector",
			"threatening behavior", "verbal abuse"},
	},
	"311": {
		Article:     "311",
		Description: "Corruption of public officials",
		MinFineUSD:  4291.24,
		MaxFineUSD:  4291.24,
		AppliesTo:   "Individual",
		LegalRef:    "Mining Code + CAMI 003/2024",
		Adjustment:  "Criminal sanctions. Anti-corruption law also applies",
		keywords: []string{"corruption", "bribery", "kickback", "illicit payment",
			"influence peddling", "graft"},
	},
}

// IdentifyViolations matches a gap and its recommendation against the
// keyword lists of every article and returns the keys that may apply.
func IdentifyViolations(gap, recommendation string) []string {
	combined := strings.ToLower(gap + " " + recommendation)
	var articles []string
	for _, key := range orderedKeys() {
		for _, kw := range catalog[key].keywords {
			if strings.Contains(combined, kw) {
				articles = append(articles, key)
				break
			}
		}
	}
	return articles
}

// MaxPenalty sums the maximum fines for the given article keys
func MaxPenalty(articles []string) float64 {
	var total float64
	for _, a := range articles {
		if p, ok := catalog[a]; ok {
			total += p.MaxFineUSD
		}
	}
	return total
}

// Details returns the full penalty record for an article key
func Details(article string) (Info, bool) {
	p, ok := catalog[article]
	return p, ok
}

// FormatAmount renders a USD amount with thousands separators, e.g.
// "$1,072,805.65".
func FormatAmount(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]
	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return sign + "$" + b.String() + frac
}

// Disclaimer is the audit-scope note attached to every exposure calculation
func Disclaimer() string {
	return "Financial exposure calculations are based on compliance gaps identified during " +
		"the audit and include administrative and regulatory penalties only. " +
		"Penalties related to criminal matters (fraud, obstruction) are noted for reference " +
		"but excluded from calculations as they require specialized investigation beyond " +
		"the scope of a compliance audit."
}

// orderedKeys returns catalog keys in article order so matching is stable
func orderedKeys() []string {
	return []string{
		"299_excluded", "299bis", "300", "301", "302", "303",
		"304", "305", "306", "307", "308", "309", "310", "311",
	}
}
