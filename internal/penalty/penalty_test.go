package penalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyViolations(t *testing.T) {
	articles := IdentifyViolations("Safety: pollution incidents reported near the tailings dam", "")
	assert.Contains(t, articles, "307")

	articles = IdentifyViolations("Environmental: contamination of local water sources", "CRITICAL: escalate remediation")
	assert.Contains(t, articles, "307")

	articles = IdentifyViolations("Transparency: traceability records incomplete", "")
	assert.Contains(t, articles, "306")

	assert.Empty(t, IdentifyViolations("Permits: exploitation permit valid and current", ""))
}

func TestIdentifyViolationsStableOrder(t *testing.T) {
	gap := "human rights abuses, corruption and pollution at the site"
	articles := IdentifyViolations(gap, "")
	// matches come back in article order regardless of keyword position
	require.Equal(t, []string{"299bis", "307", "311"}, articles)
}

func TestMaxPenalty(t *testing.T) {
	assert.Equal(t, 0.0, MaxPenalty(nil))
	assert.Equal(t, 0.0, MaxPenalty([]string{"no_such_article"}))

	p299bis, ok := Details("299bis")
	require.True(t, ok)
	p307, ok := Details("307")
	require.True(t, ok)
	assert.Equal(t, p299bis.MaxFineUSD+p307.MaxFineUSD, MaxPenalty([]string{"299bis", "307"}))
}

func TestExcludedArticleCarriesNoFine(t *testing.T) {
	p, ok := Details("299_excluded")
	require.True(t, ok)
	assert.Zero(t, p.MaxFineUSD)
	assert.Equal(t, "299", p.Article)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$0.00", FormatAmount(0))
	assert.Equal(t, "$999.99", FormatAmount(999.99))
	assert.Equal(t, "$1,000.00", FormatAmount(1000))
	assert.Equal(t, "$42,912.25", FormatAmount(42912.25))
	assert.Equal(t, "$1,072,805.65", FormatAmount(1072805.65))
	assert.Equal(t, "-$25,000.00", FormatAmount(-25000))
}

func TestDisclaimerScopesOutCriminalMatters(t *testing.T) {
	d := Disclaimer()
	assert.Contains(t, d, "administrative and regulatory penalties only")
	assert.Contains(t, d, "fraud, obstruction")
}
