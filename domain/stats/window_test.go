package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"selectcms/domain/core"
)

func TestWindowStats_NaNScoresAreAbsent(t *testing.T) {
	ws := NewWindowStats(1, 100, 200)
	a := core.NewSNP(150, "rs1")
	b := core.NewSNP(120, "rs2")

	ws.SetScores(TestIHS, map[core.SNP]float64{a: 1.5, b: math.NaN()})
	ws.AddScore(TestFst, b, 0.3)

	assert.True(t, ws.HasScore(TestIHS, a))
	assert.False(t, ws.HasScore(TestIHS, b))
	assert.True(t, math.IsNaN(ws.Score(TestIHS, b)))
	assert.Equal(t, []core.SNP{b, a}, ws.AllSNPs())
	assert.True(t, ws.ContainsSNP(b))
	assert.False(t, ws.ContainsSNP(core.NewSNP(150, "rs9")))
}

func TestWindowStats_StandardizedOnlyForOwnedSNPs(t *testing.T) {
	ws := NewWindowStats(2, 0, 10)
	a := core.NewSNP(5, "rs5")
	ws.SetComposite(a, 0.1, math.NaN())

	assert.True(t, ws.PutStdPoP(a, 1.2))
	assert.False(t, ws.PutStdMoP(a, 1.2), "no mean composite was recorded")
	assert.False(t, ws.PutStdPoP(core.NewSNP(6, "rs6"), 1.0))

	rec := ws.Record(a)
	assert.Equal(t, 2, rec.Window)
	assert.InDelta(t, 0.1, rec.UnstdPoP, 1e-12)
	assert.InDelta(t, 1.2, rec.StdPoP, 1e-12)
	assert.True(t, math.IsNaN(rec.UnstdMoP))
	assert.True(t, math.IsNaN(rec.DAF))
	assert.Len(t, rec.Values(), len(OutputColumns)-2)
}

func TestWindowStats_ScoredSNPsExcludeDAFOnly(t *testing.T) {
	ws := NewWindowStats(2, 0, 100)
	scored := core.NewSNP(10, "rs1")
	dafOnly := core.NewSNP(5, "rs2")

	ws.AddScore(TestXPEHH, scored, 1.2)
	ws.AddDAF(scored, 0.4)
	ws.AddDAF(dafOnly, 0.7)

	assert.Equal(t, []core.SNP{dafOnly, scored}, ws.AllSNPs())
	assert.Equal(t, []core.SNP{scored}, ws.ScoredSNPs())
}
