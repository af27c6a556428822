package bilibili

import (
	"encoding/xml"
	"io"
	"strings"
)

// element is one <d> comment element: its "p" attribute and character data.
type element struct {
	attr string
	text string
}

// elementScanner walks the token stream and yields every <d> element
// regardless of nesting, tolerating wrapper elements other dumps add around
// the comment list.
type elementScanner struct {
	dec *xml.Decoder
}

func newElementScanner(doc string) *elementScanner {
	return &elementScanner{dec: xml.NewDecoder(strings.NewReader(doc))}
}

func (s *elementScanner) next() (element, error) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return element{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "d" {
			continue
		}
		var node struct {
			P    string `xml:"p,attr"`
			Text string `xml:",chardata"`
		}
		if err := s.dec.DecodeElement(&node, &start); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return element{}, err
		}
		return element{attr: node.P, text: node.Text}, nil
	}
}
