package server

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pari-ranasaria28/Document-Signature-App/capture"
	"github.com/pari-ranasaria28/Document-Signature-App/field"
	"github.com/pari-ranasaria28/Document-Signature-App/geometry"
	"github.com/pari-ranasaria28/Document-Signature-App/orchestrator"
	"github.com/pari-ranasaria28/Document-Signature-App/sigerr"
	"github.com/pari-ranasaria28/Document-Signature-App/stamp"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type stampRequest struct {
	// Document is the original PDF, base64 encoded.
	Document []byte          `json:"document" binding:"required"`
	Fields   json.RawMessage `json:"fields" binding:"required"`
}

func (s *Server) stampDocument(c *gin.Context) {
	var req stampRequest
	if !s.bind(c, &req) {
		return
	}
	fields, err := field.DecodeRecords(req.Fields)
	if err != nil {
		s.fail(c, err)
		return
	}

	documentID := c.Param("documentId")
	snapshot := make([]field.SignedField, 0, len(fields))
	for _, f := range fields {
		if f.DocumentID != "" && f.DocumentID != documentID {
			s.fail(c, sigerr.New(sigerr.KindInvalidRecord, "field belongs to document %q", f.DocumentID).WithField(f.ID))
			return
		}
		snapshot = append(snapshot, f.Snapshot())
	}

	out, report, err := s.stamper.StampWithReport(req.Document, snapshot)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writePDF(c, out, report)
}

func (s *Server) writePDF(c *gin.Context, out []byte, report *stamp.Report) {
	c.Header("X-Stamp-Placed", strconv.Itoa(len(report.Placements)))
	c.Header("X-Stamp-Skipped", strconv.Itoa(len(report.Skipped)))
	c.Data(http.StatusOK, "application/pdf", out)
}

type placeRequest struct {
	SignerEmail string  `json:"signerEmail"`
	SignerName  string  `json:"signerName"`
	PageNumber  int     `json:"pageNumber"`
	XFraction   float64 `json:"xFraction"`
	YFraction   float64 `json:"yFraction"`
	WidthPx     float64 `json:"widthPx"`
	HeightPx    float64 `json:"heightPx"`
}

func (s *Server) placeField(c *gin.Context) {
	var req placeRequest
	if !s.bind(c, &req) {
		return
	}
	f, err := s.orchestrator.PlaceField(c.Request.Context(), field.Placement{
		DocumentID:  c.Param("documentId"),
		SignerEmail: req.SignerEmail,
		SignerName:  req.SignerName,
		PageNumber:  req.PageNumber,
		Position:    geometry.Fraction{X: req.XFraction, Y: req.YFraction},
		WidthPx:     req.WidthPx,
		HeightPx:    req.HeightPx,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, f.Record())
}

func (s *Server) nextPending(c *gin.Context) {
	signer := c.Query("signer")
	if signer == "" {
		s.fail(c, sigerr.New(sigerr.KindMissingSignerInfo, "signer query parameter is required"))
		return
	}
	f, err := s.orchestrator.NextPending(c.Request.Context(), c.Param("documentId"), signer)
	if err != nil {
		s.fail(c, err)
		return
	}
	if f == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, f.Record())
}

type progressResponse struct {
	orchestrator.Progress
	Ready bool `json:"ready"`
}

func (s *Server) progress(c *gin.Context) {
	p, err := s.orchestrator.Progress(c.Request.Context(), c.Param("documentId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progressResponse{Progress: p, Ready: p.Pending == 0})
}

type signerRequest struct {
	SignerEmail string `json:"signerEmail"`
}

func (s *Server) issueLink(c *gin.Context) {
	var req signerRequest
	if !s.bind(c, &req) {
		return
	}
	n, err := s.orchestrator.IssueLink(c.Request.Context(), c.Param("documentId"), req.SignerEmail)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": n})
}

type finalizeRequest struct {
	Document []byte `json:"document" binding:"required"`
}

func (s *Server) finalize(c *gin.Context) {
	var req finalizeRequest
	if !s.bind(c, &req) {
		return
	}
	out, report, err := s.orchestrator.Finalize(c.Request.Context(), c.Param("documentId"), req.Document)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writePDF(c, out, report)
}

type moveRequest struct {
	PageNumber int     `json:"pageNumber"`
	XFraction  float64 `json:"xFraction"`
	YFraction  float64 `json:"yFraction"`
}

func (s *Server) moveField(c *gin.Context) {
	var req moveRequest
	if !s.bind(c, &req) {
		return
	}
	f, err := s.orchestrator.MoveField(c.Request.Context(), c.Param("fieldId"), req.PageNumber,
		geometry.Fraction{X: req.XFraction, Y: req.YFraction})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f.Record())
}

func (s *Server) removeField(c *gin.Context) {
	if err := s.orchestrator.RemoveField(c.Request.Context(), c.Param("fieldId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type signRequest struct {
	SignerEmail string         `json:"signerEmail"`
	SignerName  string         `json:"signerName"`
	Method      capture.Method `json:"method"`
	// Image is base64 or a data URL.
	Image string `json:"image"`
}

func (s *Server) signField(c *gin.Context) {
	var req signRequest
	if !s.bind(c, &req) {
		return
	}
	fieldID := c.Param("fieldId")
	data, err := field.DecodeImageData(req.Image)
	if err != nil {
		s.fail(c, sigerr.Wrap(sigerr.KindInvalidRecord, err, "signature image is not valid base64").WithField(fieldID))
		return
	}
	if len(data) == 0 {
		s.fail(c, sigerr.New(sigerr.KindEmptyInput, "signature image is empty").WithField(fieldID))
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		s.fail(c, sigerr.Wrap(sigerr.KindImageEmbedFailed, err, "signature image cannot be decoded").WithField(fieldID))
		return
	}
	if req.Method == "" {
		req.Method = capture.MethodDrawn
	}

	sig := &capture.Signature{
		PNG:    data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Method: req.Method,
		Signer: capture.Signer{Name: req.SignerName, Email: req.SignerEmail},
	}
	f, err := s.orchestrator.MarkSigned(c.Request.Context(), fieldID, req.SignerEmail, sig)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f.Record())
}

func (s *Server) rejectField(c *gin.Context) {
	var req signerRequest
	if !s.bind(c, &req) {
		return
	}
	f, err := s.orchestrator.MarkRejected(c.Request.Context(), c.Param("fieldId"), req.SignerEmail)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f.Record())
}

type typedRequest struct {
	Text        string `json:"text"`
	SignerName  string `json:"signerName"`
	SignerEmail string `json:"signerEmail"`
}

type signatureResponse struct {
	Image  string         `json:"image"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Method capture.Method `json:"method"`
}

func (s *Server) typedSignature(c *gin.Context) {
	var req typedRequest
	if !s.bind(c, &req) {
		return
	}
	pad := capture.NewTypedPad(s.capture, nil)
	pad.SetText(req.Text)
	sig, err := pad.Complete(c.Request.Context(), capture.Signer{Name: req.SignerName, Email: req.SignerEmail})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, signatureResponse{
		Image:  sig.DataURL(),
		Width:  sig.Width,
		Height: sig.Height,
		Method: sig.Method,
	})
}

type captureRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) captureFraction(c *gin.Context) {
	var req captureRequest
	if !s.bind(c, &req) {
		return
	}
	f, err := geometry.Capture(geometry.Point{X: req.X, Y: req.Y}, geometry.Size{Width: req.Width, Height: req.Height})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"xFraction": f.X, "yFraction": f.Y})
}

type displayRequest struct {
	XFraction float64 `json:"xFraction"`
	YFraction float64 `json:"yFraction"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

func (s *Server) displayPoint(c *gin.Context) {
	var req displayRequest
	if !s.bind(c, &req) {
		return
	}
	p, err := geometry.Display(geometry.Fraction{X: req.XFraction, Y: req.YFraction}, geometry.Size{Width: req.Width, Height: req.Height})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"x": p.X, "y": p.Y})
}
