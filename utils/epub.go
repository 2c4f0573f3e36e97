package utils

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUB is what an import needs from an .epub file.
type EPUB struct {
	Title     string
	ISBN      string
	Text      string
	Cover     []byte
	CoverType string
}

type container struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles struct {
		RootFile []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// opfPackage is a partial EPUB package document. Element names are matched by
// local name, so dc:title and dc:identifier decode without namespaces.
type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles      []string `xml:"title"`
		Identifiers []struct {
			ID     string `xml:"id,attr"`
			Scheme string `xml:"scheme,attr"`
			Value  string `xml:",chardata"`
		} `xml:"identifier"`
		Meta []struct {
			Name     string `xml:"name,attr"`
			Property string `xml:"property,attr"`
			Refines  string `xml:"refines,attr"`
			Content  string `xml:"content,attr"`
			Value    string `xml:",chardata"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// ParseEPUB reads the chapters listed in the spine as plain text, and picks up
// the title, ISBN and cover image when the package declares them.
func ParseEPUB(data []byte) (*EPUB, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty")
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid EPUB file (not a valid ZIP): %w", err)
	}

	containerFile, err := readZipFile(reader, "META-INF/container.xml")
	if err != nil {
		return nil, fmt.Errorf("failed to read container.xml: %w", err)
	}
	var c container
	if err := xml.Unmarshal(containerFile, &c); err != nil {
		return nil, fmt.Errorf("failed to parse container.xml: %w", err)
	}
	if len(c.RootFiles.RootFile) == 0 {
		return nil, fmt.Errorf("no rootfile found in container.xml")
	}

	opfPath := normalizeZipPath(c.RootFiles.RootFile[0].FullPath)
	opfContent, err := readZipFile(reader, opfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPF file: %w", err)
	}
	var pkg opfPackage
	if err := xml.Unmarshal(opfContent, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF file: %w", err)
	}
	opfDir := path.Dir(opfPath)

	out := &EPUB{ISBN: findISBN(&pkg)}
	for _, t := range pkg.Metadata.Titles {
		if t = strings.TrimSpace(t); t != "" {
			out.Title = t
			break
		}
	}

	items := make(map[string]manifestItem, len(pkg.Manifest.Items))
	for _, it := range pkg.Manifest.Items {
		items[it.ID] = it
	}

	var chapters []string
	for _, ref := range pkg.Spine.ItemRefs {
		it, ok := items[ref.IDRef]
		if !ok || !isHTMLMedia(it.MediaType) {
			continue
		}
		raw, err := readZipFile(reader, path.Join(opfDir, it.Href))
		if err != nil {
			return nil, fmt.Errorf("failed to read chapter %s: %w", it.Href, err)
		}
		if text := htmlText(raw); text != "" {
			chapters = append(chapters, text)
		}
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no readable chapters in EPUB")
	}
	out.Text = strings.Join(chapters, "\n\n")

	if cover, ok := coverItem(&pkg, items); ok {
		if img, err := readZipFile(reader, path.Join(opfDir, cover.Href)); err == nil {
			out.Cover = img
			out.CoverType = cover.MediaType
			if out.CoverType == "" {
				out.CoverType = "image/jpeg"
			}
		}
	}
	return out, nil
}

func isHTMLMedia(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

// coverItem finds the cover through EPUB 2 <meta name="cover"> or the EPUB 3
// cover-image property.
func coverItem(pkg *opfPackage, items map[string]manifestItem) (manifestItem, bool) {
	for _, m := range pkg.Metadata.Meta {
		if strings.EqualFold(m.Name, "cover") && m.Content != "" {
			if it, ok := items[m.Content]; ok {
				return it, true
			}
		}
	}
	for _, it := range pkg.Manifest.Items {
		for _, p := range strings.Fields(it.Properties) {
			if p == "cover-image" {
				return it, true
			}
		}
	}
	return manifestItem{}, false
}

func findISBN(pkg *opfPackage) string {
	// identifiers with an explicit ISBN scheme
	for _, id := range pkg.Metadata.Identifiers {
		if isISBNScheme(id.Scheme) {
			if cleaned := sanitizeISBN(id.Value); isValidISBN(cleaned) {
				return cleaned
			}
		}
	}
	// EPUB 3 refines="#id" property="identifier-type"
	for _, m := range pkg.Metadata.Meta {
		prop := strings.ToLower(strings.TrimSpace(m.Property))
		value := m.Content
		if value == "" {
			value = m.Value
		}
		if (prop != "identifier-type" && prop != "scheme") || !isISBNScheme(value) {
			continue
		}
		refID := strings.TrimPrefix(strings.TrimSpace(m.Refines), "#")
		for _, id := range pkg.Metadata.Identifiers {
			if id.ID == refID {
				if cleaned := sanitizeISBN(id.Value); isValidISBN(cleaned) {
					return cleaned
				}
			}
		}
	}
	// anything shaped like an ISBN, skipping uuids
	for _, id := range pkg.Metadata.Identifiers {
		v := strings.ToLower(strings.TrimSpace(id.Value))
		if strings.HasPrefix(v, "urn:uuid:") {
			continue
		}
		if cleaned := sanitizeISBN(v); isValidISBN(cleaned) {
			return cleaned
		}
	}
	return ""
}

func isISBNScheme(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "isbn", "isbn-10", "isbn-13", "15":
		return true
	}
	return false
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Section: true, atom.Article: true, atom.Pre: true,
}

// htmlText flattens a chapter into paragraphs separated by blank lines.
func htmlText(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var paragraphs []string
	var cur strings.Builder
	flush := func() {
		if p := strings.Join(strings.Fields(cur.String()), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
		cur.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			}
			if blockElements[n.DataAtom] {
				flush()
				defer flush()
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	flush()
	return strings.Join(paragraphs, "\n\n")
}

func normalizeZipPath(p string) string {
	return strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/")
}

// readZipFile reads name from the archive. Matching is case-insensitive and
// tolerates backslashes.
func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	name = normalizeZipPath(name)
	for _, file := range reader.File {
		if !strings.EqualFold(normalizeZipPath(file.Name), name) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open zip file entry: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("file not found in zip: %s", name)
}

func sanitizeISBN(isbn string) string {
	var cleaned strings.Builder
	for _, r := range isbn {
		if r >= '0' && r <= '9' {
			cleaned.WriteRune(r)
		}
	}
	return cleaned.String()
}

func isValidISBN(cleaned string) bool {
	return len(cleaned) == 10 || len(cleaned) == 13
}
