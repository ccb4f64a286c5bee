// Package sidecar implements the tanaste.xml reader/writer and the
// filesystem-first "great inhale" library scanner (C7).
package sidecar

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the fixed sidecar file name placed in the folder it
// describes.
const FileName = "tanaste.xml"

// HubSidecar is the <tanaste-hub> root element.
type HubSidecar struct {
	XMLName        xml.Name `xml:"tanaste-hub"`
	Version        string   `xml:"version,attr"`
	DisplayName    string   `xml:"display-name"`
	Year           string   `xml:"year,omitempty"`
	ExternalID     string   `xml:"external-id,omitempty"`
	Franchise      string   `xml:"franchise,omitempty"`
	LastOrganized  string   `xml:"last-organized"`
}

// ClaimLock is a user-lock entry carried in an edition sidecar.
type ClaimLock struct {
	Key      string `xml:"key,attr"`
	Value    string `xml:"value,attr"`
	LockedAt string `xml:"locked-at,attr"`
}

// EditionSidecar is the <tanaste-edition> root element.
type EditionSidecar struct {
	XMLName       xml.Name    `xml:"tanaste-edition"`
	Version       string      `xml:"version,attr"`
	Title         string      `xml:"title"`
	Author        string      `xml:"author,omitempty"`
	MediaType     string      `xml:"media-type"`
	ISBN          string      `xml:"isbn,omitempty"`
	ASIN          string      `xml:"asin,omitempty"`
	ContentHash   string      `xml:"content-hash"`
	CoverPath     string      `xml:"cover-path"`
	Claims        []ClaimLock `xml:"claim"`
	LastOrganized string      `xml:"last-organized"`
}

// DefaultCoverPath is used when no cover art was written.
const DefaultCoverPath = "cover.jpg"

// WriteHub atomically writes a hub sidecar into dir, using the same
// write-to-temp-then-rename idiom the teacher's registry uses for its
// own atomic JSON writes.
func WriteHub(dir string, hub HubSidecar) error {
	hub.XMLName = xml.Name{Local: "tanaste-hub"}
	if hub.Version == "" {
		hub.Version = "1.0"
	}
	return atomicWriteXML(filepath.Join(dir, FileName), hub)
}

// WriteEdition atomically writes an edition sidecar into dir.
func WriteEdition(dir string, edition EditionSidecar) error {
	edition.XMLName = xml.Name{Local: "tanaste-edition"}
	if edition.Version == "" {
		edition.Version = "1.0"
	}
	if edition.CoverPath == "" {
		edition.CoverPath = DefaultCoverPath
	}
	return atomicWriteXML(filepath.Join(dir, FileName), edition)
}

func atomicWriteXML(path string, v any) error {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("sidecar: marshal %s: %w", path, err)
	}
	body = append([]byte(xml.Header), body...)
	body = append(body, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tanaste-sidecar-*.tmp")
	if err != nil {
		return fmt.Errorf("sidecar: create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("sidecar: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sidecar: sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sidecar: close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("sidecar: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// probe is the minimal shape needed to classify a sidecar by its root
// element name without fully decoding it, per step 1 of the great inhale.
type probe struct {
	XMLName xml.Name
}

// Classify reads just enough of the file at path to report whether it is
// a hub or edition sidecar.
func Classify(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("sidecar: open %s: %w", path, err)
	}
	defer f.Close()

	var p probe
	if err := xml.NewDecoder(f).Decode(&p); err != nil {
		return "", fmt.Errorf("sidecar: decode root element of %s: %w", path, err)
	}
	return p.XMLName.Local, nil
}

// ReadHub fully decodes a hub sidecar.
func ReadHub(path string) (HubSidecar, error) {
	var hub HubSidecar
	if err := readXML(path, &hub); err != nil {
		return HubSidecar{}, err
	}
	return hub, nil
}

// ReadEdition fully decodes an edition sidecar.
func ReadEdition(path string) (EditionSidecar, error) {
	var edition EditionSidecar
	if err := readXML(path, &edition); err != nil {
		return EditionSidecar{}, err
	}
	return edition, nil
}

func readXML(path string, v any) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("sidecar: read %s: %w", path, err)
	}
	if err := xml.Unmarshal(body, v); err != nil {
		return fmt.Errorf("sidecar: unmarshal %s: %w", path, err)
	}
	return nil
}
