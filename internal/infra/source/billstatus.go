package source

import (
	"encoding/xml"
	"errors"
	"io"
	"iter"
	"strings"

	"paper-trail/internal/domain/record"
)

// billStatusXML covers both BILLSTATUS schemas: the current one with
// type/number and the older one with billType/billNumber.
type billStatusXML struct {
	Bill struct {
		Congress   string `xml:"congress"`
		Type       string `xml:"type"`
		BillType   string `xml:"billType"`
		Number     string `xml:"number"`
		BillNumber string `xml:"billNumber"`
		Title      string `xml:"title"`
		PolicyArea string `xml:"policyArea>name"`
		Laws       []struct {
			Type   string `xml:"type"`
			Number string `xml:"number"`
		} `xml:"laws>item"`
		LatestAction struct {
			ActionDate string `xml:"actionDate"`
			Text       string `xml:"text"`
		} `xml:"latestAction"`
	} `xml:"bill"`
}

// enacted reports whether the bill became law.
func (b *billStatusXML) enacted() bool {
	if len(b.Bill.Laws) > 0 {
		return true
	}
	text := strings.ToLower(b.Bill.LatestAction.Text)
	return strings.Contains(text, "became public law") || strings.Contains(text, "became private law")
}

func (b *billStatusXML) record(file string) record.BillStatus {
	out := record.BillStatus{
		Origin:     record.Origin{SourceFile: file, Line: 1},
		Congress:   strings.TrimSpace(b.Bill.Congress),
		Type:       strings.TrimSpace(b.Bill.Type),
		Number:     strings.TrimSpace(b.Bill.Number),
		Title:      b.Bill.Title,
		EnactedOn:  strings.TrimSpace(b.Bill.LatestAction.ActionDate),
		PolicyArea: b.Bill.PolicyArea,
	}
	if out.Type == "" {
		out.Type = strings.TrimSpace(b.Bill.BillType)
	}
	if out.Number == "" {
		out.Number = strings.TrimSpace(b.Bill.BillNumber)
	}
	return out
}

// BillStatusReader reads Congress.gov BILLSTATUS documents, one bill per
// XML file, from plain files or zip archives. Only enacted bills are
// yielded.
type BillStatusReader struct {
	Paths []string
}

func NewBillStatusReader(paths ...string) *BillStatusReader {
	return &BillStatusReader{Paths: paths}
}

func (r *BillStatusReader) Name() string { return "billstatus" }

func (r *BillStatusReader) Records() iter.Seq2[record.BillStatus, error] {
	return func(yield func(record.BillStatus, error) bool) {
		err := walk(r.Paths, ".xml", func(name string, rd io.Reader) error {
			var doc billStatusXML
			if err := xml.NewDecoder(rd).Decode(&doc); err != nil {
				if !yield(record.BillStatus{}, &record.ParseError{SourceFile: name, Line: 1, Err: err}) {
					return errStopped
				}
				return nil
			}
			if !doc.enacted() {
				return nil
			}
			if !yield(doc.record(name), nil) {
				return errStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(record.BillStatus{}, err)
		}
	}
}
