package domain

import (
	"fmt"
	"sort"
)

// Action es el resultado del decision engine.
type Action int

const (
	ActionHold Action = iota
	ActionRotate
)

// String devuelve el nombre de la acción para logs.
func (a Action) String() string {
	switch a {
	case ActionRotate:
		return "ROTATE"
	default:
		return "HOLD"
	}
}

// MissingHoldingPolicy decide qué hacer cuando el asset que tenemos no tiene
// score este ciclo (delisting, datos no disponibles).
type MissingHoldingPolicy string

const (
	// MissingHoldingAbort: Hold hasta que vuelva a haber datos del holding.
	MissingHoldingAbort MissingHoldingPolicy = "abort"
	// MissingHoldingZeroBaseline: se compara contra un score actual de 0.
	MissingHoldingZeroBaseline MissingHoldingPolicy = "zero_baseline"
)

// DecisionConfig son los parámetros del decision engine. Threshold es el
// margen mínimo de netGain (se exige netGain > Threshold). DisableCashExit
// quita quote (score 0) de los candidatos cuando tenemos crypto.
type DecisionConfig struct {
	Threshold       float64
	MissingHolding  MissingHoldingPolicy
	DisableCashExit bool
}

// DecisionInput agrupa todo lo que Decide necesita. No tiene efectos secundarios.
type DecisionInput struct {
	Position Position
	Scores   []AssetScore
	Prices   map[string]float64
	Fees     FeeSchedule
	Config   DecisionConfig
}

// Exclusion registra un candidato descartado y el motivo.
type Exclusion struct {
	Asset  string
	Reason string
}

// Decision es Hold o RotateTo(Target), con las métricas usadas para decidir.
type Decision struct {
	Action         Action
	From           string
	Target         string
	CurrentScore   float64
	CandidateScore float64
	FeeFraction    float64
	NetGain        float64
	Notional       float64
	ZeroBaseline   bool // el score actual se tomó como 0 por política
	Excluded       []Exclusion
	Reason         string
}

// IsRotate devuelve true si la decisión es rotar.
func (d Decision) IsRotate() bool {
	return d.Action == ActionRotate
}

// RankScores ordena por score descendente; empates por símbolo ascendente.
// Devuelve una copia; no modifica el slice original.
func RankScores(scores []AssetScore) []AssetScore {
	ranked := make([]AssetScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Asset < ranked[j].Asset
	})
	return ranked
}

// Decide compara el mejor candidato contra la posición actual neto de fees.
//
//	netGain = candidateScore - currentScore - feeFraction
//
// Si tenemos crypto, quote también es candidato con score 0 (salida a cash,
// solo la fee de venta). Se elige el netGain más alto; un empate favorece a
// la crypto. Solo devuelve RotateTo si netGain > Threshold (estricto). Sin
// candidatos, con solo el asset actual o con notional cero, siempre Hold.
func Decide(in DecisionInput) Decision {
	pos := in.Position
	quote := in.Fees.Quote
	d := Decision{Action: ActionHold, From: pos.Asset}

	ranked := RankScores(in.Scores)
	if len(ranked) == 0 {
		d.Reason = "no candidates this cycle"
		return d
	}

	d.Notional = pos.Notional(quote, in.Prices)
	if d.Notional <= 0 {
		d.Reason = "position has no value"
		return d
	}

	switch {
	case pos.IsCash(quote):
		d.CurrentScore = 0
	default:
		score, ok := findScore(ranked, pos.Asset)
		if ok {
			d.CurrentScore = score
			break
		}
		if in.Config.MissingHolding != MissingHoldingZeroBaseline {
			d.Reason = fmt.Sprintf("holding %s has no score this cycle (policy %s)", pos.Asset, MissingHoldingAbort)
			return d
		}
		d.CurrentScore = 0
		d.ZeroBaseline = true
	}

	found, others := false, false
	for _, c := range ranked {
		if c.Asset == pos.Asset {
			continue
		}
		others = true
		ff, err := FeeFraction(pos.Asset, c.Asset, in.Fees)
		if err != nil {
			d.Excluded = append(d.Excluded, Exclusion{Asset: c.Asset, Reason: err.Error()})
			continue
		}
		d.Target = c.Asset
		d.CandidateScore = c.Score
		d.FeeFraction = ff
		d.NetGain = c.Score - d.CurrentScore - ff
		found = true
		break
	}

	if others && !pos.IsCash(quote) && !in.Config.DisableCashExit {
		ff, err := FeeFraction(pos.Asset, quote, in.Fees)
		switch {
		case err != nil:
			d.Excluded = append(d.Excluded, Exclusion{Asset: quote, Reason: err.Error()})
		case !found || -d.CurrentScore-ff > d.NetGain:
			d.Target = quote
			d.CandidateScore = 0
			d.FeeFraction = ff
			d.NetGain = -d.CurrentScore - ff
			found = true
		}
	}

	if !found {
		d.Reason = "no rotation candidate"
		return d
	}
	if d.NetGain > in.Config.Threshold {
		d.Action = ActionRotate
		d.Reason = fmt.Sprintf("net gain %.4f > threshold %.4f", d.NetGain, in.Config.Threshold)
	} else {
		d.Reason = fmt.Sprintf("net gain %.4f <= threshold %.4f", d.NetGain, in.Config.Threshold)
	}
	return d
}

func findScore(scores []AssetScore, asset string) (float64, bool) {
	for _, s := range scores {
		if s.Asset == asset {
			return s.Score, true
		}
	}
	return 0, false
}
