package engine

import (
	"crypto/sha256"
	"encoding/binary"
)

// Derivação determinística dos números sorteados a partir das palavras do
// oráculo. Nenhuma fonte de aleatoriedade ambiente entra aqui: mesmas
// palavras, mesmo sorteio, sempre.

// wordStream produz uint32 a partir de um fluxo SHA-256 em modo contador
// semeado pelas palavras do oráculo.
type wordStream struct {
	seed    [32]byte
	counter uint64
	block   [32]byte
	offset  int
}

// newWordStream dobra todas as palavras num único seed via SHA-256.
func newWordStream(words []uint64) *wordStream {
	h := sha256.New()
	var buf [8]byte
	for _, w := range words {
		binary.BigEndian.PutUint64(buf[:], w)
		h.Write(buf[:])
	}
	s := &wordStream{offset: 32} // força refill no primeiro next()
	h.Sum(s.seed[:0])
	return s
}

func (s *wordStream) refill() {
	var buf [40]byte
	copy(buf[:32], s.seed[:])
	binary.BigEndian.PutUint64(buf[32:], s.counter)
	s.counter++
	s.block = sha256.Sum256(buf[:])
	s.offset = 0
}

// next retorna os próximos 4 bytes do fluxo como uint32.
func (s *wordStream) next() uint32 {
	if s.offset+4 > len(s.block) {
		s.refill()
	}
	v := binary.BigEndian.Uint32(s.block[s.offset : s.offset+4])
	s.offset += 4
	return v
}

// nextBounded retorna um uint32 uniforme em [0,n) por rejection sampling,
// evitando o viés de módulo de um simples next()%n.
func (s *wordStream) nextBounded(n uint32) uint32 {
	limit := (1 << 32 / uint64(n)) * uint64(n)
	for {
		v := s.next()
		if uint64(v) < limit {
			return v % n
		}
	}
}

// DeriveDrawnNumbers sorteia 6 números distintos em [1,99] a partir das
// palavras do oráculo, via Fisher-Yates parcial sobre o range completo.
// Cada passo escolhe uniformemente entre as posições restantes, então o
// resultado é uniforme sobre os 6-subconjuntos de [1,99].
func DeriveDrawnNumbers(words []uint64) []uint8 {
	s := newWordStream(words)

	var pool [MaxNumber - MinNumber + 1]uint8
	for i := range pool {
		pool[i] = uint8(MinNumber + i)
	}

	drawn := make([]uint8, NumPicks)
	for i := 0; i < NumPicks; i++ {
		remaining := uint32(len(pool) - i)
		j := i + int(s.nextBounded(remaining))
		pool[i], pool[j] = pool[j], pool[i]
		drawn[i] = pool[i]
	}
	return drawn
}
