package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDrawnNumbersDeterministic(t *testing.T) {
	words := []uint64{0xdeadbeef, 42, 7}

	first := DeriveDrawnNumbers(words)
	second := DeriveDrawnNumbers(words)
	assert.Equal(t, first, second, "mesmas palavras, mesmo sorteio")

	other := DeriveDrawnNumbers([]uint64{0xdeadbeef, 42, 8})
	assert.NotEqual(t, first, other, "palavra diferente deve mudar o sorteio")
}

func TestDeriveDrawnNumbersRangeAndDistinct(t *testing.T) {
	for seed := uint64(0); seed < 2000; seed++ {
		drawn := DeriveDrawnNumbers([]uint64{seed})
		require.Len(t, drawn, NumPicks)

		seen := map[uint8]bool{}
		for _, n := range drawn {
			require.GreaterOrEqual(t, n, uint8(MinNumber))
			require.LessOrEqual(t, n, uint8(MaxNumber))
			require.False(t, seen[n], "número repetido no sorteio seed=%d", seed)
			seen[n] = true
		}
	}
}

func TestDeriveDrawnNumbersSingleWord(t *testing.T) {
	drawn := DeriveDrawnNumbers([]uint64{1})
	require.Len(t, drawn, NumPicks)
}

// Argumento anti-viés: o Fisher-Yates parcial escolhe uniformemente entre as
// posições restantes e o nextBounded rejeita a cauda do uint32, então nenhum
// número (baixo ou alto) pode ser favorecido. O teste confere a frequência de
// cada número em muitos sorteios contra a esperança uniforme.
func TestDeriveDrawnNumbersUniformity(t *testing.T) {
	const draws = 30000

	counts := make(map[uint8]int)
	for seed := uint64(0); seed < draws; seed++ {
		for _, n := range DeriveDrawnNumbers([]uint64{seed, seed * 31}) {
			counts[n]++
		}
	}

	// esperança: draws * 6 / 99 por número (~1818); tolerância larga o
	// suficiente para não flakar, apertada o suficiente para pegar viés de
	// módulo ou viés posicional.
	expected := float64(draws) * NumPicks / (MaxNumber - MinNumber + 1)
	for n := uint8(MinNumber); n <= MaxNumber; n++ {
		got := float64(counts[n])
		assert.InDelta(t, expected, got, expected*0.15, "número %d fora da faixa uniforme", n)
	}
}
