package server

import (
	"io"
	"mime"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"github.com/smallbiznis/homescore/internal/providers/pdf"
)

type confidenceScoreResponse struct {
	PropertyID      string               `json:"propertyId"`
	CalculationDate string               `json:"calculationDate"`
	InsuranceScore  int                  `json:"insuranceScore"`
	BuyerScore      int                  `json:"buyerScore"`
	InsuranceRating string               `json:"insuranceRating"`
	BuyerRating     string               `json:"buyerRating"`
	HistoricalData  []historicalDataItem `json:"historicalData"`
	Factors         map[string]float64   `json:"factors"`
	Partial         bool                 `json:"partial"`
}

type historicalDataItem struct {
	Date           string `json:"date"`
	InsuranceScore int    `json:"insuranceScore"`
	BuyerScore     int    `json:"buyerScore"`
}

func newConfidenceScoreResponse(score *confidencescoredomain.ConfidenceScore, history []confidencescoredomain.ConfidenceScore) confidenceScoreResponse {
	return confidenceScoreResponse{
		PropertyID:      score.PropertyID,
		CalculationDate: score.CalculationDate.UTC().Format(dateOnlyLayout),
		InsuranceScore:  score.InsuranceScore,
		BuyerScore:      score.BuyerScore,
		InsuranceRating: confidencescoredomain.RatingBand(score.InsuranceScore),
		BuyerRating:     confidencescoredomain.RatingBand(score.BuyerScore),
		HistoricalData:  newHistoricalData(history),
		Factors:         score.Factors(),
		Partial:         score.Partial,
	}
}

func newHistoricalData(history []confidencescoredomain.ConfidenceScore) []historicalDataItem {
	items := make([]historicalDataItem, 0, len(history))
	for _, h := range history {
		items = append(items, historicalDataItem{
			Date:           h.CalculationDate.UTC().Format(dateOnlyLayout),
			InsuranceScore: h.InsuranceScore,
			BuyerScore:     h.BuyerScore,
		})
	}
	return items
}

func (s *Server) GetConfidenceScore(c *gin.Context) {
	propertyID, err := propertyIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	score, err := s.scores.GetLatest(ctx, propertyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := s.scores.History(ctx, propertyID, confidencescoredomain.DefaultHistoryLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newConfidenceScoreResponse(score, history)})
}

func (s *Server) ListConfidenceScoreHistory(c *gin.Context) {
	propertyID, err := propertyIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit, err := parseLimit(c, confidencescoredomain.DefaultHistoryLimit, confidencescoredomain.MaxHistoryLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := s.scores.History(c.Request.Context(), propertyID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newHistoricalData(history)})
}

func (s *Server) RecalculateConfidenceScore(c *gin.Context) {
	propertyID, err := propertyIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	score, err := s.scores.Recalculate(ctx, propertyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := s.scores.History(ctx, propertyID, confidencescoredomain.DefaultHistoryLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newConfidenceScoreResponse(score, history)})
}

func (s *Server) DownloadConfidenceScoreReport(c *gin.Context) {
	propertyID, err := propertyIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	score, err := s.scores.GetLatest(ctx, propertyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	history, err := s.scores.History(ctx, propertyID, confidencescoredomain.DefaultHistoryLimit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data := newScoreReportData(score, history)
	if property != nil {
		data.PropertyName = property.Name
		data.Postcode = property.Postcode
	}

	reader, err := s.reports.GenerateScoreReport(ctx, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if reader == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordReportRendered(ctx)
	c.Header("Content-Disposition", reportDisposition(propertyID))
	c.Data(http.StatusOK, "application/pdf", body)
}

// reportDisposition names the download after a slug of the property id so
// quotes or separators in the id cannot break the header.
func reportDisposition(propertyID string) string {
	name := slug.Make(propertyID)
	if name == "" {
		name = "property"
	}
	return mime.FormatMediaType("attachment", map[string]string{
		"filename": "confidence-score-" + name + ".pdf",
	})
}

func newScoreReportData(score *confidencescoredomain.ConfidenceScore, history []confidencescoredomain.ConfidenceScore) pdf.ScoreReportData {
	factors := score.Factors()
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]pdf.FactorLine, 0, len(names))
	for _, name := range names {
		lines = append(lines, pdf.FactorLine{Name: name, Score: factors[name]})
	}

	points := make([]pdf.HistoryLine, 0, len(history))
	for _, h := range history {
		points = append(points, pdf.HistoryLine{
			Date:           h.CalculationDate.UTC().Format(dateOnlyLayout),
			InsuranceScore: h.InsuranceScore,
			BuyerScore:     h.BuyerScore,
		})
	}

	return pdf.ScoreReportData{
		PropertyID:      score.PropertyID,
		CalculationDate: score.CalculationDate.UTC().Format(dateOnlyLayout),
		InsuranceScore:  score.InsuranceScore,
		InsuranceRating: confidencescoredomain.RatingBand(score.InsuranceScore),
		BuyerScore:      score.BuyerScore,
		BuyerRating:     confidencescoredomain.RatingBand(score.BuyerScore),
		Partial:         score.Partial,
		Factors:         lines,
		History:         points,
	}
}
