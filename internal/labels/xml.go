package labels

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// XMLRoot is the root element written by the form authoring tool.
const XMLRoot = "OMRdata"

type xmlItem struct {
	Name string `xml:"n,attr"`
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

type xmlGroup struct {
	XMLName xml.Name
	Items   []xmlItem `xml:"item"`
}

type xmlDocument struct {
	XMLName xml.Name
	Groups  []xmlGroup `xml:",any"`
}

// decodeXML reads the legacy layout: one child element of the root per
// group, each holding typed <item n=".." type=".."> elements.
func decodeXML(r io.Reader) (*rawDatabase, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &FormatError{Err: err}
	}
	raw := &rawDatabase{}
	for _, g := range doc.Groups {
		name := g.XMLName.Local
		items := make([]rawItem, 0, len(g.Items))
		for _, it := range g.Items {
			v, err := Coerce(it.Type, it.Text)
			if err != nil {
				return nil, &FormatError{Group: name, Key: it.Name, Err: err}
			}
			items = append(items, rawItem{name: it.Name, value: v})
		}
		if name == HeadGroup {
			raw.head = append(raw.head, items...)
			continue
		}
		raw.groups = append(raw.groups, rawGroup{name: name, items: items})
	}
	return raw, nil
}

// WriteXML encodes db in the legacy layout.
func (db *Database) WriteXML(w io.Writer) error {
	doc := xmlDocument{XMLName: xml.Name{Local: XMLRoot}}
	head := xmlGroup{XMLName: xml.Name{Local: HeadGroup}}
	for _, kv := range []struct {
		name string
		v    float64
	}{
		{"paperwidth", db.Head.PaperWidth},
		{"paperheight", db.Head.PaperHeight},
		{"bubblewidth", db.Head.BubbleWidth},
		{"bubbleheight", db.Head.BubbleHeight},
	} {
		head.Items = append(head.Items, xmlItem{Name: kv.name, Type: "float", Text: strconv.FormatFloat(kv.v, 'g', -1, 64)})
	}
	doc.Groups = append(doc.Groups, head)
	for _, g := range db.Groups {
		xg := xmlGroup{XMLName: xml.Name{Local: g.Name}}
		for _, e := range g.Entries {
			xg.Items = append(xg.Items, xmlItem{
				Name: e.Key,
				Type: "coord",
				Text: Value{Kind: KindCoord, X: e.X, Y: e.Y}.String(),
			})
		}
		doc.Groups = append(doc.Groups, xg)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode label database: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
