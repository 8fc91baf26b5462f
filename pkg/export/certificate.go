package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate holds the fields printed on an issued license certificate.
type Certificate struct {
	Number        string
	Authority     string
	ApplicantName string
	LicenseType   string
	ApprovedAt    time.Time
	IssuedAt      time.Time
}

// CertificateExporter renders license certificates as PDF documents.
type CertificateExporter struct{}

// NewCertificateExporter constructs a certificate exporter.
func NewCertificateExporter() *CertificateExporter {
	return &CertificateExporter{}
}

// Render creates the certificate PDF.
func (e *CertificateExporter) Render(cert Certificate) ([]byte, error) {
	if cert.ApplicantName == "" || cert.LicenseType == "" {
		return nil, fmt.Errorf("certificate requires applicant name and license type")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 14, strings.ToUpper(cert.Authority), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 10, "Broadcasting License Certificate", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, cert.ApplicantName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("has been granted a %s license", cert.LicenseType), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Certificate No: %s", cert.Number), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Approved: %s", cert.ApprovedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Issued: %s", cert.IssuedAt.Format("2 January 2006")), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
