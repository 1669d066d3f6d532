package engine

import "errors"

// Constantes de protocolo do jogo. O split 10/90 é fixo, não configurável por
// aposta: mantém a matemática de liquidação auditável por inspeção.
const (
	NumPicks  = 6
	MinNumber = 1
	MaxNumber = 99

	// Corte do tesouro em basis points (10%)
	TreasuryFeeBps = 1000
)

// Erros de validação de uma aposta. Cada condição tem identidade própria para
// que chamadores e testes decidam por erro, nunca por mensagem.
var (
	ErrStakeOutOfRange  = errors.New("stake out of range")
	ErrWrongNumberCount = errors.New("wrong number count")
	ErrNumberOutOfRange = errors.New("number out of range")
	ErrDuplicateNumber  = errors.New("duplicate number")
)

// SplitStake divide o stake entre tesouro e prize pool.
// treasuryCut = floor(stake*10/100); poolCut = stake - treasuryCut.
// A soma das partes é sempre exatamente o stake (sem perda de arredondamento).
func SplitStake(stake int64) (treasuryCut, poolCut int64) {
	treasuryCut = stake * TreasuryFeeBps / 10000
	poolCut = stake - treasuryCut
	return treasuryCut, poolCut
}

// CalculatePrize é a tabela fixa de prêmios: múltiplo do stake por quantidade
// de acertos. Função pura, sem efeito colateral.
func CalculatePrize(matches int, stake int64) int64 {
	switch matches {
	case 6:
		return stake * 100
	case 5:
		return stake * 50
	case 4:
		return stake * 20
	case 3:
		return stake * 10
	case 2:
		return stake * 5
	default:
		return 0
	}
}

// ValidateStake confere o stake contra os limites vigentes (inclusivos).
func ValidateStake(stake, minBet, maxBet int64) error {
	if stake < minBet || stake > maxBet {
		return ErrStakeOutOfRange
	}
	return nil
}

// ValidateNumbers exige exatamente 6 números, cada um em [1,99], sem repetição.
func ValidateNumbers(nums []uint8) error {
	if len(nums) != NumPicks {
		return ErrWrongNumberCount
	}
	var seen [MaxNumber + 1]bool
	for _, n := range nums {
		if n < MinNumber || n > MaxNumber {
			return ErrNumberOutOfRange
		}
		if seen[n] {
			return ErrDuplicateNumber
		}
		seen[n] = true
	}
	return nil
}

// MatchCount conta quantos números escolhidos estão entre os sorteados.
func MatchCount(chosen, drawn []uint8) int {
	var inDrawn [MaxNumber + 1]bool
	for _, n := range drawn {
		if n >= MinNumber && n <= MaxNumber {
			inDrawn[n] = true
		}
	}
	count := 0
	for _, n := range chosen {
		if n >= MinNumber && n <= MaxNumber && inDrawn[n] {
			count++
		}
	}
	return count
}
