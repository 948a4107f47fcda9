package catalog

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// NumCategories é o tamanho fixo da tabela de tipos de aposta (índices 0..6)
	NumCategories = 7
	// NumOutcomes são as posições da roda (0..36)
	NumOutcomes = 37
)

var (
	ErrBadCategory      = errors.New("bet category out of range")
	ErrBadDifferentiator = errors.New("differentiator not allowed for category")
	ErrOutcomeCount     = errors.New("outcome count does not match category")
	ErrOutcomeRange     = errors.New("outcome out of wheel range")
	ErrStakeBounds      = errors.New("stake outside category bounds")
	ErrBadUpdate        = errors.New("invalid catalog update")
)

// Bet é uma aposta individual dentro do lote de uma rodada
type Bet struct {
	Category       uint8   `json:"category"`
	Differentiator uint8   `json:"differentiator"`
	Outcomes       []uint8 `json:"outcomes"`
	StakeCents     uint64  `json:"stake_cents"`
}

// Category descreve declarativamente um tipo de aposta: quantos números cobre,
// quanto paga e quais variantes (differentiators) são válidas
type Category struct {
	Name            string
	OutcomeCount    uint8
	Multiplier      uint8
	Differentiators map[uint8]struct{}
	MinStakeCents   uint64
	MaxStakeCents   uint64
}

// Params é a projeção persistível dos campos ajustáveis de uma categoria
type Params struct {
	Category      uint8
	Multiplier    uint8
	MinStakeCents uint64
	MaxStakeCents uint64
}

// Catalog é a tabela estática das 7 categorias com limites ajustáveis pelo admin.
// Atualizações são atômicas: ou o lote inteiro é aplicado, ou nada muda.
type Catalog struct {
	mu   sync.RWMutex
	cats [NumCategories]Category
}

// diffRange monta o conjunto de differentiators 0..n-1
func diffRange(n int) map[uint8]struct{} {
	m := make(map[uint8]struct{}, n)
	for i := 0; i < n; i++ {
		m[uint8(i)] = struct{}{}
	}
	return m
}

// Default monta o catálogo padrão da roda de 37 posições.
// Invariante de precificação: cobertura estritamente decrescente
// (18,12,6,4,3,2,1) pareada com multiplicador estritamente crescente
// (1,2,5,8,11,17,35).
func Default() *Catalog {
	c := &Catalog{}
	c.cats = [NumCategories]Category{
		{Name: "EVEN_MONEY", OutcomeCount: 18, Multiplier: 1, Differentiators: diffRange(6), MinStakeCents: 100, MaxStakeCents: 500_000},
		{Name: "DOZEN_COLUMN", OutcomeCount: 12, Multiplier: 2, Differentiators: diffRange(6), MinStakeCents: 100, MaxStakeCents: 500_000},
		{Name: "DOUBLE_STREET", OutcomeCount: 6, Multiplier: 5, Differentiators: diffRange(11), MinStakeCents: 100, MaxStakeCents: 300_000},
		{Name: "CORNER", OutcomeCount: 4, Multiplier: 8, Differentiators: diffRange(22), MinStakeCents: 100, MaxStakeCents: 300_000},
		{Name: "STREET", OutcomeCount: 3, Multiplier: 11, Differentiators: diffRange(12), MinStakeCents: 100, MaxStakeCents: 200_000},
		{Name: "SPLIT", OutcomeCount: 2, Multiplier: 17, Differentiators: diffRange(57), MinStakeCents: 100, MaxStakeCents: 200_000},
		{Name: "STRAIGHT_UP", OutcomeCount: 1, Multiplier: 35, Differentiators: diffRange(37), MinStakeCents: 100, MaxStakeCents: 100_000},
	}
	return c
}

// Validate checa uma aposta contra a categoria declarada.
// Ordem dos checks: categoria, differentiator, contagem de números,
// faixa de cada número, limites de stake. Retorna a primeira violação.
func (c *Catalog) Validate(b Bet) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(b.Category) >= NumCategories {
		return fmt.Errorf("%w: %d", ErrBadCategory, b.Category)
	}
	cat := c.cats[b.Category]

	if _, ok := cat.Differentiators[b.Differentiator]; !ok {
		return fmt.Errorf("%w: category %s differentiator %d", ErrBadDifferentiator, cat.Name, b.Differentiator)
	}
	if len(b.Outcomes) != int(cat.OutcomeCount) {
		return fmt.Errorf("%w: category %s expects %d outcomes, got %d", ErrOutcomeCount, cat.Name, cat.OutcomeCount, len(b.Outcomes))
	}
	for _, o := range b.Outcomes {
		if o >= NumOutcomes {
			return fmt.Errorf("%w: %d", ErrOutcomeRange, o)
		}
	}
	if b.StakeCents < cat.MinStakeCents || b.StakeCents > cat.MaxStakeCents {
		return fmt.Errorf("%w: category %s stake %d not in [%d,%d]",
			ErrStakeBounds, cat.Name, b.StakeCents, cat.MinStakeCents, cat.MaxStakeCents)
	}
	return nil
}

// ValidateBatch aplica Validate ao lote; qualquer violação rejeita o lote inteiro
func (c *Catalog) ValidateBatch(bets []Bet) error {
	for i, b := range bets {
		if err := c.Validate(b); err != nil {
			return fmt.Errorf("bet %d: %w", i, err)
		}
	}
	return nil
}

// Multipliers devolve o snapshot dos 7 multiplicadores por tier (tier == categoria)
func (c *Catalog) Multipliers() [NumCategories]uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var m [NumCategories]uint8
	for i, cat := range c.cats {
		m[i] = cat.Multiplier
	}
	return m
}

// Categories devolve uma cópia da tabela (uso em API/boot)
func (c *Catalog) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Category, NumCategories)
	copy(out, c.cats[:])
	return out
}

// Params devolve os campos ajustáveis para persistência
func (c *Catalog) Params() []Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Params, 0, NumCategories)
	for i, cat := range c.cats {
		out = append(out, Params{Category: uint8(i), Multiplier: cat.Multiplier, MinStakeCents: cat.MinStakeCents, MaxStakeCents: cat.MaxStakeCents})
	}
	return out
}

// ApplyParams restaura campos ajustáveis persistidos (boot)
func (c *Catalog) ApplyParams(ps []Params) error {
	next := c.snapshot()
	for _, p := range ps {
		if int(p.Category) >= NumCategories {
			return fmt.Errorf("%w: category %d", ErrBadUpdate, p.Category)
		}
		next[p.Category].Multiplier = p.Multiplier
		next[p.Category].MinStakeCents = p.MinStakeCents
		next[p.Category].MaxStakeCents = p.MaxStakeCents
	}
	return c.commit(next)
}

// SetPayouts atualiza multiplicadores em lote (arrays paralelos), tudo ou nada
func (c *Catalog) SetPayouts(categories []uint8, values []uint64) error {
	return c.update(categories, values, func(cat *Category, v uint64) error {
		if v == 0 || v > 255 {
			return fmt.Errorf("%w: payout %d", ErrBadUpdate, v)
		}
		cat.Multiplier = uint8(v)
		return nil
	})
}

// SetMinStakes atualiza o stake mínimo em lote, tudo ou nada
func (c *Catalog) SetMinStakes(categories []uint8, values []uint64) error {
	return c.update(categories, values, func(cat *Category, v uint64) error {
		cat.MinStakeCents = v
		return nil
	})
}

// SetMaxStakes atualiza o stake máximo em lote, tudo ou nada
func (c *Catalog) SetMaxStakes(categories []uint8, values []uint64) error {
	return c.update(categories, values, func(cat *Category, v uint64) error {
		cat.MaxStakeCents = v
		return nil
	})
}

func (c *Catalog) snapshot() [NumCategories]Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cats
}

// update aplica a mutação sobre uma cópia e só troca a tabela se a cópia
// inteira continuar válida
func (c *Catalog) update(categories []uint8, values []uint64, apply func(*Category, uint64) error) error {
	if len(categories) != len(values) {
		return fmt.Errorf("%w: %d categories, %d values", ErrBadUpdate, len(categories), len(values))
	}
	next := c.snapshot()
	for i, idx := range categories {
		if int(idx) >= NumCategories {
			return fmt.Errorf("%w: category %d", ErrBadUpdate, idx)
		}
		if err := apply(&next[idx], values[i]); err != nil {
			return err
		}
	}
	return c.commit(next)
}

// commit valida os invariantes da tabela inteira antes de efetivar
func (c *Catalog) commit(next [NumCategories]Category) error {
	for i, cat := range next {
		if cat.MinStakeCents > cat.MaxStakeCents {
			return fmt.Errorf("%w: category %s min %d > max %d", ErrBadUpdate, cat.Name, cat.MinStakeCents, cat.MaxStakeCents)
		}
		// cobertura decrescente deve seguir pareada com payout crescente
		if i > 0 && next[i-1].Multiplier >= cat.Multiplier {
			return fmt.Errorf("%w: payout must strictly increase across categories (%s=%d, %s=%d)",
				ErrBadUpdate, next[i-1].Name, next[i-1].Multiplier, cat.Name, cat.Multiplier)
		}
	}
	c.mu.Lock()
	c.cats = next
	c.mu.Unlock()
	return nil
}
