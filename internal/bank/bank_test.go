package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigilore/internal/model"
)

func TestLoadEmbeddedBanks(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	names := r.Frameworks()
	assert.Contains(t, names, "DRC_Mining_Code")
	assert.Contains(t, names, "DRC_Mining_Code_2018")
	assert.Contains(t, names, "ISO_14001")
	assert.Contains(t, names, "ISO_45001")
	assert.Contains(t, names, "VPSHR")
}

func TestGetExactAndAlias(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	b, err := r.Get("DRC_Mining_Code")
	require.NoError(t, err)
	assert.Equal(t, "DRC_Mining_Code", b.Framework)

	aliased, err := r.Get("DRC_Mining_Code_2018")
	require.NoError(t, err)
	assert.Same(t, b, aliased)
}

func TestGetPartialMatch(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	b, err := r.Get("iso_14001")
	require.NoError(t, err)
	assert.Equal(t, "ISO_14001", b.Framework)

	b, err = r.Get("vpshr")
	require.NoError(t, err)
	assert.Equal(t, "VPSHR", b.Framework)
}

func TestGetUnknownFramework(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	_, err = r.Get("SOX_404")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "SOX_404", nf.Framework)

	// the empty string substring-matches everything; it must not resolve
	// to an arbitrary bank
	_, err = r.Get("")
	require.ErrorAs(t, err, &nf)
}

func TestFollowUpOnlyExcludedFromMainOrdering(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	b, err := r.Get("DRC_Mining_Code")
	require.NoError(t, err)

	assert.True(t, b.IsFollowUpOnly("drc_001a"))
	assert.False(t, b.IsFollowUpOnly("drc_001"))

	for _, q := range b.MainQuestions(nil) {
		assert.False(t, b.IsFollowUpOnly(q.ID), "follow-up %s leaked into main ordering", q.ID)
	}

	// Follow-up targets remain reachable by id.
	fq, ok := b.QuestionByID("drc_001a")
	require.True(t, ok)
	assert.Equal(t, model.QuestionText, fq.QuestionType)
}

func TestMainQuestionsCategoryFilter(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	b, err := r.Get("DRC_Mining_Code")
	require.NoError(t, err)

	qs := b.MainQuestions([]string{"Permits"})
	require.NotEmpty(t, qs)
	for _, q := range qs {
		assert.Equal(t, "Permits", q.Category)
	}

	all := b.MainQuestions(nil)
	assert.Greater(t, len(all), len(qs))
}

func TestCategoriesSorted(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	b, err := r.Get("DRC_Mining_Code")
	require.NoError(t, err)

	cats := b.Categories()
	assert.Equal(t, []string{
		"Community", "Environmental", "Permits", "Processing",
		"Safety", "Security", "Trading", "Transparency",
	}, cats)
}

func TestFollowUpForBooleanTrigger(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	b, err := r.Get("DRC_Mining_Code")
	require.NoError(t, err)

	q, ok := b.QuestionByID("drc_001")
	require.True(t, ok)

	no := false
	fq, ok := b.FollowUpFor(q, &model.AnswerValue{Bool: &no})
	require.True(t, ok)
	assert.Equal(t, "drc_001a", fq.ID)

	yes := true
	_, ok = b.FollowUpFor(q, &model.AnswerValue{Bool: &yes})
	assert.False(t, ok)
}

func TestNextFollowUpSkipsAnswered(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)
	b, err := r.Get("DRC_Mining_Code")
	require.NoError(t, err)

	yes := true
	last := &model.InterviewAnswer{
		QuestionID: "drc_013",
		Value:      model.AnswerValue{Bool: &yes},
	}

	fq, ok := b.NextFollowUp(last, map[string]bool{})
	require.True(t, ok)
	assert.Equal(t, "drc_013a", fq.ID)

	_, ok = b.NextFollowUp(last, map[string]bool{"drc_013a": true})
	assert.False(t, ok)
}
