package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBet() Bet {
	return Bet{Category: 6, Differentiator: 17, Outcomes: []uint8{17}, StakeCents: 1000}
}

func TestValidate_StraightUp(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Validate(validBet()))
}

func TestValidate_EvenMoney(t *testing.T) {
	c := Default()
	outcomes := make([]uint8, 18)
	for i := range outcomes {
		outcomes[i] = uint8(2 * (i + 1)) // pares 2..36
	}
	b := Bet{Category: 0, Differentiator: 0, Outcomes: outcomes, StakeCents: 500}
	assert.NoError(t, c.Validate(b))
}

func TestValidate_BadCategory(t *testing.T) {
	c := Default()
	b := validBet()
	b.Category = NumCategories
	assert.ErrorIs(t, c.Validate(b), ErrBadCategory)
}

func TestValidate_BadDifferentiator(t *testing.T) {
	c := Default()
	// EVEN_MONEY só admite variantes 0..5
	b := Bet{Category: 0, Differentiator: 6, Outcomes: make([]uint8, 18), StakeCents: 500}
	assert.ErrorIs(t, c.Validate(b), ErrBadDifferentiator)
}

func TestValidate_OutcomeCountMismatch(t *testing.T) {
	c := Default()
	b := validBet()
	b.Outcomes = []uint8{17, 18} // STRAIGHT_UP cobre um único número
	assert.ErrorIs(t, c.Validate(b), ErrOutcomeCount)
}

func TestValidate_OutcomeOutOfRange(t *testing.T) {
	c := Default()
	b := validBet()
	b.Outcomes = []uint8{37}
	assert.ErrorIs(t, c.Validate(b), ErrOutcomeRange)
}

func TestValidate_StakeBounds(t *testing.T) {
	c := Default()

	b := validBet()
	b.StakeCents = 99 // abaixo do mínimo
	assert.ErrorIs(t, c.Validate(b), ErrStakeBounds)

	b = validBet()
	b.StakeCents = 100_001 // acima do teto do STRAIGHT_UP
	assert.ErrorIs(t, c.Validate(b), ErrStakeBounds)
}

// a primeira violação na ordem categoria->differentiator->contagem->faixa->stake vence
func TestValidate_CheckOrder(t *testing.T) {
	c := Default()
	b := Bet{Category: 6, Differentiator: 40, Outcomes: []uint8{37, 1}, StakeCents: 1}
	assert.ErrorIs(t, c.Validate(b), ErrBadDifferentiator)

	b.Differentiator = 17
	assert.ErrorIs(t, c.Validate(b), ErrOutcomeCount)

	b.Outcomes = []uint8{37}
	assert.ErrorIs(t, c.Validate(b), ErrOutcomeRange)

	b.Outcomes = []uint8{17}
	assert.ErrorIs(t, c.Validate(b), ErrStakeBounds)
}

func TestValidateBatch_RejectsWholeLot(t *testing.T) {
	c := Default()
	bad := validBet()
	bad.StakeCents = 1
	err := c.ValidateBatch([]Bet{validBet(), bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStakeBounds)
	assert.Contains(t, err.Error(), "bet 1")
}

func TestMultipliers_DefaultTable(t *testing.T) {
	c := Default()
	assert.Equal(t, [NumCategories]uint8{1, 2, 5, 8, 11, 17, 35}, c.Multipliers())
}

func TestSetPayouts_AtomicRollback(t *testing.T) {
	c := Default()
	before := c.Multipliers()

	// segundo valor inválido: nada do lote pode ser aplicado
	err := c.SetPayouts([]uint8{0, 1}, []uint64{3, 0})
	require.ErrorIs(t, err, ErrBadUpdate)
	assert.Equal(t, before, c.Multipliers())
}

func TestSetPayouts_RejectsNonIncreasing(t *testing.T) {
	c := Default()
	before := c.Multipliers()

	// EVEN_MONEY pagando 5 empataria com DOUBLE_STREET
	err := c.SetPayouts([]uint8{0}, []uint64{5})
	require.ErrorIs(t, err, ErrBadUpdate)
	assert.Equal(t, before, c.Multipliers())
}

func TestSetPayouts_AppliesValidBatch(t *testing.T) {
	c := Default()
	require.NoError(t, c.SetPayouts([]uint8{5, 6}, []uint64{18, 36}))
	m := c.Multipliers()
	assert.Equal(t, uint8(18), m[5])
	assert.Equal(t, uint8(36), m[6])
}

func TestSetMinStakes_RejectsMinAboveMax(t *testing.T) {
	c := Default()
	err := c.SetMinStakes([]uint8{6}, []uint64{200_000}) // teto do STRAIGHT_UP é 100_000
	require.ErrorIs(t, err, ErrBadUpdate)

	b := validBet()
	b.StakeCents = 1000
	assert.NoError(t, c.Validate(b), "tabela deve permanecer a padrão após rejeição")
}

func TestSetMaxStakes_LengthMismatch(t *testing.T) {
	c := Default()
	assert.ErrorIs(t, c.SetMaxStakes([]uint8{0, 1}, []uint64{5000}), ErrBadUpdate)
}

func TestParams_Roundtrip(t *testing.T) {
	c := Default()
	require.NoError(t, c.SetPayouts([]uint8{6}, []uint64{40}))
	require.NoError(t, c.SetMinStakes([]uint8{0}, []uint64{250}))

	restored := Default()
	require.NoError(t, restored.ApplyParams(c.Params()))
	assert.Equal(t, c.Multipliers(), restored.Multipliers())
	assert.Equal(t, c.Params(), restored.Params())
}

func TestApplyParams_BadCategory(t *testing.T) {
	c := Default()
	err := c.ApplyParams([]Params{{Category: NumCategories, Multiplier: 3}})
	assert.ErrorIs(t, err, ErrBadUpdate)
}
