package service

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/sbcesar/contractguardian/model"
)

// clausePatterns holds the keyword and red-flag sets for one clause category.
// Keywords add 1 point, red flags add 2.
type clausePatterns struct {
	keywords []string
	redFlags []string
}

var clausePatternTable = map[model.ClauseType]clausePatterns{
	model.ClauseTermination: {
		keywords: []string{
			"rescisión", "rescindir", "terminación", "despido", "cancelación",
			"resolución", "vencimiento", "finalización", "cese", "extinción",
			"ruptura", "fin del contrato", "conclusión", "término",
		},
		redFlags: []string{
			"sin causa", "sin previo aviso", "unilateral", "a voluntad",
			"inmediatamente", "discrecional", "arbitraria", "sin motivo",
		},
	},
	model.ClauseLiability: {
		keywords: []string{
			"responsabilidad", "limitación", "indemnización", "daños",
			"reclamación", "garantía", "negligencia", "incumplimiento",
			"reparación", "compensación",
		},
		redFlags: []string{
			"sin responsabilidad", "sin garantía", "se proporciona tal cual",
			"limitación de responsabilidad", "exención de responsabilidad",
			"renuncia de derechos", "sin compensación",
		},
	},
	model.ClausePrivacy: {
		keywords: []string{
			"datos personales", "privacidad", "confidencialidad", "información",
			"rgpd", "protección de datos", "consentimiento", "tratamiento",
			"procesamiento", "acceso", "portabilidad",
		},
		redFlags: []string{
			"venta de datos", "datos perpetuos", "sin consentimiento",
			"compartir con terceros", "sin derecho a eliminar",
			"vigilancia", "seguimiento indefinido",
		},
	},
	model.ClausePayment: {
		keywords: []string{
			"salario", "pago", "precio", "tarifa", "compensación", "honorarios",
			"renta", "cuota", "arancel", "remuneración", "sueldo", "horas",
		},
		redFlags: []string{
			"sin pago", "reducción unilateral", "penalización", "deuda perpetua",
			"cambio sin notificación", "aumento ilimitado", "indexado infinito",
			"sin compensación",
		},
	},
	model.ClauseModification: {
		keywords: []string{
			"modificación", "cambio", "enmienda", "actualización", "revisión",
			"variación", "ajuste", "alteración", "transformación",
		},
		redFlags: []string{
			"cambio unilateral", "sin consentimiento", "sin notificación",
			"a discreción", "arbitrario", "sin límite", "permanente",
		},
	},
	model.ClauseArbitration: {
		keywords: []string{
			"arbitraje", "mediación", "resolución de disputas", "tribunal",
			"litigio", "reclamación", "jurisdicción", "competencia",
			"ley aplicable", "foro",
		},
		redFlags: []string{
			"arbitraje obligatorio", "sin derecho a juzgado", "costos arbitraje",
			"jurisdicción extranjera", "ley extranjera aplicable",
			"imposible impugnar", "sin apelación",
		},
	},
	model.ClauseDuration: {
		keywords: []string{
			"duración", "plazo", "término", "vigencia", "validez", "período",
			"años", "meses", "semanas", "días", "tiempo", "renovación",
			"prórroga",
		},
		redFlags: []string{
			"indefinido", "perpetuo", "renovación automática sin salida",
			"duración ilimitada", "sin fecha de finalización",
		},
	},
	model.ClauseRestrictions: {
		keywords: []string{
			"prohibición", "restricción", "limitación", "exclusión",
			"consentimiento requerido", "competencia", "no compete",
			"confidencialidad",
		},
		redFlags: []string{
			"restricción perpetua", "restricción mundial", "restricción total",
			"sin excepciones", "irrevocable", "inmodificable",
		},
	},
}

// applicableLaws maps each clause category to the reference ids a reviewer
// should check first.
var applicableLaws = map[model.ClauseType][]string{
	model.ClauseTermination:  {"LAB_9", "LAB_14", "LAR_9"},
	model.ClauseLiability:    {"TOS_4", "TOS_8", "TOS_10"},
	model.ClausePrivacy:      {"TOS_6", "TOS_7"},
	model.ClausePayment:      {"LAB_7", "LAB_4", "LAR_6"},
	model.ClauseModification: {"TOS_12"},
	model.ClauseArbitration:  {"TOS_13", "TOS_14"},
	model.ClauseDuration:     {"LAB_6", "LAR_3"},
	model.ClauseRestrictions: {"LAB_8"},
}

// highRiskTerms strongly signal one-sided or abusive terms (+30 each)
var highRiskTerms = []string{
	"sin causa", "sin previo aviso", "unilateral", "a discreción",
	"sin responsabilidad", "sin garantía", "sin consentimiento",
	"perpetuo", "indefinido", "irrevocable", "inmodificable",
	"se proporciona tal cual", "renuncia de derechos", "renuncia a",
	"sin compensación", "inmediatamente", "discrecional", "arbitraria",
	"exención", "limitación de responsabilidad",
}

// mediumRiskTerms signal terms that deserve a closer read (+15 each)
var mediumRiskTerms = []string{
	"modificación", "cambio", "arbitraje", "limitación",
	"penalización", "actualización", "revisión",
}

// stopWords are excluded from key-term extraction
var stopWords = map[string]bool{
	"el": true, "la": true, "de": true, "y": true, "a": true, "en": true,
	"del": true, "que": true, "por": true, "es": true, "se": true,
	"los": true, "las": true, "al": true, "una": true, "un": true,
	"este": true, "esta": true, "será": true, "puede": true, "debe": true,
	"pueden": true, "deben": true, "son": true, "está": true, "han": true,
	"sea": true, "sin": true, "con": true, "para": true, "como": true,
	"más": true,
}

const (
	minClauseLen       = 15
	longClauseLen      = 500
	highRiskThreshold  = 50
	medRiskThreshold   = 25
	maxKeyTerms        = 5
	maxRecommendations = 3
)

var numberedClauseRe = regexp.MustCompile(`(?m)^\s*\d+[.\-]\s+`)

// ClauseClassifier segments contract text into clauses and scores each one
// for type and risk. It holds no mutable state and is safe for concurrent use.
type ClauseClassifier struct{}

func NewClauseClassifier() *ClauseClassifier {
	return &ClauseClassifier{}
}

// SplitClauses divides contract text into individual clauses using ordered
// fallback strategies: numbered items, blank-line paragraphs, sentence
// boundaries, single newlines. Candidates shorter than 15 characters are
// dropped. Deterministic for identical input.
func (cc *ClauseClassifier) SplitClauses(contractText string) []string {
	text := strings.TrimSpace(contractText)
	if text == "" {
		return nil
	}

	var parts []string
	switch {
	case numberedClauseRe.MatchString(text):
		parts = splitNumbered(text)
	case strings.Contains(text, "\n\n"):
		parts = strings.Split(text, "\n\n")
	case hasSentenceBoundary(text):
		parts = splitSentences(text)
	default:
		parts = strings.Split(text, "\n")
	}

	clauses := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len([]rune(p)) >= minClauseLen {
			clauses = append(clauses, p)
		}
	}
	return clauses
}

// splitNumbered splits on lines starting with "<n>." or "<n>-", keeping each
// numbered span as one clause
func splitNumbered(text string) []string {
	locs := numberedClauseRe.FindAllStringIndex(text, -1)
	parts := make([]string, 0, len(locs))
	for i, loc := range locs {
		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, text[start:end])
	}
	return parts
}

// hasSentenceBoundary reports whether the text contains ., ! or ? followed by
// whitespace and a capital letter
func hasSentenceBoundary(text string) bool {
	return len(sentenceBoundaries(text)) > 0
}

// sentenceBoundaries returns the byte offsets right after each terminator
// that is followed by whitespace and an upper-case letter
func sentenceBoundaries(text string) []int {
	runes := []rune(text)
	var offsets []int
	byteOff := 0
	for i, r := range runes {
		byteOff += len(string(r))
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		sawSpace := false
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			sawSpace = true
			j++
		}
		if sawSpace && j < len(runes) && unicode.IsUpper(runes[j]) {
			offsets = append(offsets, byteOff)
		}
	}
	return offsets
}

func splitSentences(text string) []string {
	offsets := sentenceBoundaries(text)
	parts := make([]string, 0, len(offsets)+1)
	prev := 0
	for _, off := range offsets {
		parts = append(parts, text[prev:off])
		prev = off
	}
	parts = append(parts, text[prev:])
	return parts
}

// DetectClauseType scores every category against the clause text and returns
// the best one with a confidence in [0,1]. Keywords count 1 point, red flags
// 2; ties resolve to the category listed earliest in ClauseTypePriority.
func (cc *ClauseClassifier) DetectClauseType(clauseText string) (model.ClauseType, float64) {
	textLower := strings.ToLower(clauseText)

	bestType := model.ClauseOther
	bestScore := 0
	for _, ct := range model.ClauseTypePriority {
		patterns := clausePatternTable[ct]
		score := 0
		for _, kw := range patterns.keywords {
			if strings.Contains(textLower, kw) {
				score++
			}
		}
		for _, rf := range patterns.redFlags {
			if strings.Contains(textLower, rf) {
				score += 2
			}
		}
		if score > bestScore {
			bestType = ct
			bestScore = score
		}
	}

	if bestScore == 0 {
		return model.ClauseOther, 0
	}
	confidence := float64(bestScore) / 5.0
	if confidence > 1.0 {
		confidence = 1.0
	}
	return bestType, confidence
}

// CalculateRisk computes the additive risk score of a clause and maps it to a
// risk level. The score is clamped to [0,100].
func (cc *ClauseClassifier) CalculateRisk(clauseText string, clauseType model.ClauseType) (model.RiskLevel, int) {
	textLower := strings.ToLower(clauseText)
	score := 0

	for _, term := range highRiskTerms {
		score += 30 * strings.Count(textLower, term)
	}
	for _, term := range mediumRiskTerms {
		score += 15 * strings.Count(textLower, term)
	}

	// Unusually long clauses tend to hide complexity
	if len([]rune(clauseText)) > longClauseLen {
		score += 20
	}

	// Density of legal nominalizations (-ción, -dad, -miento) as a jargon proxy
	jargon := countJargonWords(textLower) * 3
	if jargon > 30 {
		jargon = 30
	}
	score += jargon

	// Termination and liability clauses carry baseline risk even without
	// explicit red flags
	if score < 10 && (clauseType == model.ClauseTermination || clauseType == model.ClauseLiability) {
		score = 20
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	switch {
	case score >= highRiskThreshold:
		return model.RiskHigh, score
	case score >= medRiskThreshold:
		return model.RiskMedium, score
	default:
		return model.RiskLow, score
	}
}

// splitWords breaks lower-cased text into letter-only words
func splitWords(textLower string) []string {
	return strings.FieldsFunc(textLower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func countJargonWords(textLower string) int {
	count := 0
	for _, w := range splitWords(textLower) {
		if strings.HasSuffix(w, "ción") || strings.HasSuffix(w, "dad") || strings.HasSuffix(w, "miento") {
			count++
		}
	}
	return count
}

// ExtractKeyTerms returns up to 5 significant terms of the clause: words of
// at least 4 letters, lower-cased, stop words removed, de-duplicated and
// sorted alphabetically.
func (cc *ClauseClassifier) ExtractKeyTerms(clauseText string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range splitWords(strings.ToLower(clauseText)) {
		if len([]rune(w)) < 4 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	sort.Strings(terms)
	if len(terms) > maxKeyTerms {
		terms = terms[:maxKeyTerms]
	}
	return terms
}

// legalIssueTable yields the canned issue description per (type, risk)
var legalIssueTable = map[model.ClauseType]map[model.RiskLevel]string{
	model.ClauseTermination: {
		model.RiskHigh:   "Rescisión unilateral sin causa y sin previo aviso - VIOLACIÓN de derechos laborales",
		model.RiskMedium: "Terminación con condiciones no estándar",
		model.RiskLow:    "Procedimiento de terminación claro",
	},
	model.ClauseLiability: {
		model.RiskHigh:   "Limitación de responsabilidad indebida o injusta - ABUSIVA",
		model.RiskMedium: "Limitación de responsabilidad moderada",
		model.RiskLow:    "Limitación de responsabilidad razonable",
	},
	model.ClausePrivacy: {
		model.RiskHigh:   "Recopilación indefinida de datos sin consentimiento - VIOLACIÓN RGPD",
		model.RiskMedium: "Tratamiento de datos con limitaciones",
		model.RiskLow:    "Protección de datos conforme a RGPD",
	},
	model.ClausePayment: {
		model.RiskHigh:   "Cambio unilateral de precios o reducción sin causa",
		model.RiskMedium: "Actualización de precios periódica",
		model.RiskLow:    "Precios fijos durante el contrato",
	},
	model.ClauseModification: {
		model.RiskHigh:   "Modificación unilateral sin consentimiento - ABUSIVA",
		model.RiskMedium: "Modificación con previo aviso",
		model.RiskLow:    "Modificación por acuerdo mutuo",
	},
	model.ClauseArbitration: {
		model.RiskHigh:   "Arbitraje obligatorio sin derecho a tribunal - LIMITACIÓN DE DERECHOS",
		model.RiskMedium: "Mediación como primer paso",
		model.RiskLow:    "Resolución alternativa de disputas",
	},
	model.ClauseDuration: {
		model.RiskHigh:   "Duración indefinida o perpetua - SIN SALIDA",
		model.RiskMedium: "Renovación automática con salida",
		model.RiskLow:    "Duración definida con opción de renovación",
	},
	model.ClauseRestrictions: {
		model.RiskHigh:   "Restricción perpetua e ilimitada - ABUSIVA",
		model.RiskMedium: "Restricción temporal o limitada",
		model.RiskLow:    "Restricción razonable y limitada",
	},
}

func legalIssue(clauseType model.ClauseType, riskLevel model.RiskLevel) string {
	if byRisk, ok := legalIssueTable[clauseType]; ok {
		if issue, ok := byRisk[riskLevel]; ok {
			return issue
		}
	}
	return "Problema legal desconocido"
}

func recommendations(clauseType model.ClauseType, riskLevel model.RiskLevel) []string {
	var recs []string
	switch riskLevel {
	case model.RiskHigh:
		recs = append(recs,
			"CRÍTICO: REVISAR CON ABOGADO - Riesgos significativos",
			"NO FIRMES sin negociar esta cláusula",
			"Solicita cambios ANTES de firmar",
		)
	case model.RiskMedium:
		recs = append(recs,
			"REVISAR: Asegúrate de entender esta cláusula",
			"Considera solicitar cambios en los términos",
		)
	default:
		recs = append(recs,
			"Esta cláusula parece razonable",
			"Pero aún debes revisar según tu contexto",
		)
	}

	switch clauseType {
	case model.ClauseTermination:
		recs = append(recs, "Exige que se especifiquen los motivos válidos de terminación")
	case model.ClauseLiability:
		recs = append(recs, "Verifica cobertura completa de daños y responsabilidades")
	case model.ClausePrivacy:
		recs = append(recs, "Exige derechos de acceso, rectificación y eliminación de datos")
	case model.ClauseModification:
		recs = append(recs, "Requiere TU consentimiento para cambios importantes")
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// ClassifyClause runs the full analysis of a single clause
func (cc *ClauseClassifier) ClassifyClause(clauseText, clauseID string) model.ClassifiedClause {
	clauseType, confidence := cc.DetectClauseType(clauseText)
	riskLevel, riskScore := cc.CalculateRisk(clauseText, clauseType)

	display := clauseText
	if runes := []rune(display); len(runes) > 200 {
		display = string(runes[:200])
	}

	return model.ClassifiedClause{
		ID:              clauseID,
		ClauseText:      display,
		ClauseType:      clauseType,
		RiskLevel:       riskLevel,
		RiskScore:       riskScore,
		Confidence:      confidence,
		LegalIssue:      legalIssue(clauseType, riskLevel),
		ApplicableLaws:  applicableLaws[clauseType],
		Recommendations: recommendations(clauseType, riskLevel),
		KeyTerms:        cc.ExtractKeyTerms(clauseText),
	}
}

// ClassifyContract segments the document and classifies every clause in
// segmentation order. Clause ids are clause_1, clause_2, ...
func (cc *ClauseClassifier) ClassifyContract(contractText string) []model.ClassifiedClause {
	clauses := cc.SplitClauses(contractText)
	classified := make([]model.ClassifiedClause, 0, len(clauses))
	for i, clause := range clauses {
		classified = append(classified, cc.ClassifyClause(clause, fmt.Sprintf("clause_%d", i+1)))
	}
	return classified
}

// Summarize aggregates risk counts and the mean score of a classified contract
func (cc *ClauseClassifier) Summarize(clauses []model.ClassifiedClause) model.ClassificationSummary {
	summary := model.ClassificationSummary{TotalClauses: len(clauses)}

	total := 0
	for _, c := range clauses {
		total += c.RiskScore
		switch c.RiskLevel {
		case model.RiskHigh:
			summary.HighRisk++
		case model.RiskMedium:
			summary.MediumRisk++
		default:
			summary.LowRisk++
		}
	}

	if len(clauses) > 0 {
		summary.AverageRiskScore = round1(float64(total) / float64(len(clauses)))
		summary.RiskPercentage = round1(float64(summary.HighRisk) / float64(len(clauses)) * 100)
	}
	return summary
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
