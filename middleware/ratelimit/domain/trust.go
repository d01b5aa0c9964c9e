package domain

const (
	BaseTrustScore = 10
	MinTrustScore  = 0
	MaxTrustScore  = 20

	DefaultTrustReward  = 1
	DefaultTrustPenalty = 2
)

// TrustStore guarda um score inteiro em [0, 20] por identificador.
//
// Score cria a entrada (com BaseTrustScore) no primeiro acesso.
// Scores nunca são removidos.
type TrustStore interface {
	Score(id string) int
	Increase(id string, delta int) int
	Decrease(id string, delta int) int
	Scores() map[string]int
}

func ClampTrust(v int) int {
	if v < MinTrustScore {
		return MinTrustScore
	}
	if v > MaxTrustScore {
		return MaxTrustScore
	}
	return v
}
