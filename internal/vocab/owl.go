package vocab

import (
	"encoding/xml"
	"os"
	"strings"

	"bioterms/internal/model"
)

// owlClass is the minimal slice of an OWL/RDF owl:Class element this
// extractor needs: its IRI, subClassOf parents, alternative/replacement
// ids, and deprecation flag. No general-purpose OWL reasoner exists in the
// retrieval pack, so this walks the RDF/XML tree directly with
// encoding/xml rather than pulling in a full OWL API.
type owlClass struct {
	IRI             string
	Label           string
	Definition      string
	Synonyms        []string
	Comment         string
	SubClassOf      []string // resource IRIs
	PartOf          []string // BFO_0000050 "part of" object property fillers
	AlternativeIDs  []string
	Deprecated      bool
}

// rdfAbout/rdfResource/xml structures below mirror the subset of OWL/RDF-
// XML vocabulary HPO and ORDO releases actually use.
type rdfDescription struct {
	XMLName xml.Name   `xml:"Class"`
	About   string     `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# about,attr"`
	SubClassOf []rdfResourceRef `xml:"subClassOf"`
	Label      []string   `xml:"label"`
	Definition []string   `xml:"http://purl.obolibrary.org/obo/IAO_0000115 definition"`
	Comment    []string   `xml:"comment"`
	Synonym    []string   `xml:"hasExactSynonym"`
	AltID      []string   `xml:"hasAlternativeId"`
	Deprecated []bool     `xml:"deprecated"`
}

type rdfResourceRef struct {
	Resource    string           `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# resource,attr"`
	Restriction *rdfRestriction  `xml:"Restriction"`
}

type rdfRestriction struct {
	OnProperty rdfResourceRef `xml:"onProperty"`
	SomeValuesFrom rdfResourceRef `xml:"someValuesFrom"`
}

// partOfPropertyIRI is BFO_0000050, "part of", used by ORDO to relate
// clinical subtypes/groups of disorders.
const partOfPropertyIRI = "http://purl.obolibrary.org/obo/BFO_0000050"

// parseOWLClasses streams an RDF/XML OWL ontology file and returns one
// owlClass per owl:Class element encountered.
func parseOWLClasses(path string) ([]owlClass, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrFilesNotFound, "missing OWL file "+path, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	var classes []owlClass

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Class" {
			continue
		}
		var rd rdfDescription
		if err := dec.DecodeElement(&rd, &se); err != nil {
			continue
		}
		if rd.About == "" {
			continue
		}
		oc := owlClass{IRI: rd.About}
		if len(rd.Label) > 0 {
			oc.Label = rd.Label[0]
		}
		if len(rd.Definition) > 0 {
			oc.Definition = rd.Definition[0]
		}
		if len(rd.Comment) > 0 {
			oc.Comment = rd.Comment[0]
		}
		oc.Synonyms = rd.Synonym
		oc.AlternativeIDs = rd.AltID
		for _, d := range rd.Deprecated {
			if d {
				oc.Deprecated = true
			}
		}
		for _, sc := range rd.SubClassOf {
			if sc.Resource != "" {
				oc.SubClassOf = append(oc.SubClassOf, sc.Resource)
				continue
			}
			if sc.Restriction != nil && sc.Restriction.OnProperty.Resource == partOfPropertyIRI {
				oc.PartOf = append(oc.PartOf, sc.Restriction.SomeValuesFrom.Resource)
			}
		}
		classes = append(classes, oc)
	}

	return classes, nil
}

// iriLastSegment extracts the trailing path/fragment segment of an IRI,
// used as the conceptId for HPO and ORDO classes (e.g.
// http://purl.obolibrary.org/obo/HP_0001250 -> HP_0001250).
func iriLastSegment(iri string) string {
	if i := strings.LastIndexAny(iri, "/#"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
