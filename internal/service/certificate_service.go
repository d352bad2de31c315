package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"
)

// CertificateService renders the completion certificate PDF for passing
// sessions.
type CertificateService struct {
	sessions SessionStore
	fontPath string
	log      zerolog.Logger
}

// NewCertificateService creates a new CertificateService. fontPath points at
// a TTF file bundled with the deployment.
func NewCertificateService(sessions SessionStore, fontPath string, log zerolog.Logger) *CertificateService {
	return &CertificateService{
		sessions: sessions,
		fontPath: fontPath,
		log:      log.With().Str("component", "certificate_service").Logger(),
	}
}

// Render produces the certificate PDF for a session. Only completed, passing
// sessions are certifiable.
func (s *CertificateService) Render(ctx context.Context, sessionID uuid.UUID) ([]byte, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapSessionErr(err)
	}

	if !session.Completed() || session.Passed == nil || !*session.Passed {
		return nil, ErrCertificateUnavailable
	}

	pdf, err := s.render(session)
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	s.log.Info().Str("session_id", sessionID.String()).Msg("Certificate rendered")
	return pdf, nil
}

func (s *CertificateService) render(session *model.ExamSession) ([]byte, error) {
	doc := gopdf.GoPdf{}
	page := *gopdf.PageSizeA4Landscape
	doc.Start(gopdf.Config{PageSize: page})
	doc.AddPage()

	if err := doc.AddTTFFont("main", s.fontPath); err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	// Border frame.
	doc.SetLineWidth(2)
	doc.SetStrokeColor(60, 60, 120)
	doc.RectFromUpperLeft(24, 24, page.W-48, page.H-48)
	doc.SetLineWidth(0.5)
	doc.RectFromUpperLeft(32, 32, page.W-64, page.H-64)

	centered := func(y float64, size float64, text string) error {
		if err := doc.SetFont("main", "", size); err != nil {
			return err
		}
		width, err := doc.MeasureTextWidth(text)
		if err != nil {
			return err
		}
		doc.SetXY((page.W-width)/2, y)
		return doc.Cell(nil, text)
	}

	doc.SetTextColor(40, 40, 80)
	if err := centered(90, 34, "Certificate of Completion"); err != nil {
		return nil, err
	}

	doc.SetTextColor(90, 90, 90)
	if err := centered(150, 14, "This certifies that"); err != nil {
		return nil, err
	}

	doc.SetTextColor(20, 20, 20)
	if err := centered(185, 28, session.StudentName); err != nil {
		return nil, err
	}

	doc.SetTextColor(90, 90, 90)
	if err := centered(240, 14, "has successfully passed the Numerology Knowledge Exam"); err != nil {
		return nil, err
	}

	score := fmt.Sprintf("Score: %.0f%%", *session.Score*100)
	doc.SetTextColor(40, 40, 80)
	if err := centered(280, 18, score); err != nil {
		return nil, err
	}

	doc.SetTextColor(120, 120, 120)
	when := session.CompletedAt.UTC().Format("January 2, 2006")
	if err := centered(page.H-110, 12, "Completed on "+when); err != nil {
		return nil, err
	}
	if err := centered(page.H-90, 10, "Certificate ID: "+session.ID.String()); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CertificateFilename builds the attachment name served with the PDF.
func CertificateFilename(session *model.ExamSession) string {
	when := time.Now().UTC()
	if session.CompletedAt != nil {
		when = session.CompletedAt.UTC()
	}
	return fmt.Sprintf("numerology-certificate-%s.pdf", when.Format("2006-01-02"))
}
