// Package schematest provides a small risks document shared by package tests.
package schematest

import (
	"testing"

	"github.com/kingrea/narcorisks/internal/schema"
)

// Document is a compact risks document covering every addressing form.
const Document = `{
  "translations": {
    "app": {"title": {"de": "Narkoseaufklärung", "en": "Anesthesia consent"}},
    "buttons": {"reset": "Zurücksetzen", "copy": {"de": "Kopieren"}}
  },
  "risks": {"children": [{
    "general": {
      "label": {"de": "Allgemeinanästhesie", "en": "General anesthesia"},
      "airway": {
        "label": {"de": "Atemweg", "en": "Airway"},
        "teeth": {"label": {"de": "Zahnschäden", "en": "Dental damage"}},
        "sore_throat": {"label": {"de": "Halsschmerzen", "en": "Sore throat"}}
      },
      "common": {
        "label": {"de": "Allgemein", "en": "Common"},
        "nausea": {"label": {"de": "Übelkeit", "en": "Nausea"}},
        "shivering": {"label": {"de": "Kältezittern", "en": "Shivering"}}
      },
      "awareness": {"label": {"de": "Wachheit", "en": "Awareness"}},
      "aspiration": {"label": {"de": "Aspiration"}}
    },
    "regional": {
      "label": {"de": "Regionalanästhesie", "en": "Regional anesthesia"},
      "common": {
        "label": {"de": "Allgemein", "en": "Common"},
        "bruise": {"label": {"de": "Bluterguss", "en": "Bruise"}}
      },
      "nerve": {
        "label": {"de": "Nerven", "en": "Nerves"},
        "injury": {"label": {"de": "Nervenschaden", "en": "Nerve injury"}},
        "block": {
          "label": {"de": "Blockade", "en": "Block"},
          "prolonged": {"label": {"de": "Verlängerte Blockade", "en": "Prolonged block"}},
          "failed": {"label": {"de": "Versagen", "en": "Failure"}}
        }
      }
    },
    "notes": "ignored",
    "draft": {"x": {"label": {"de": "Entwurf"}}}
  }]},
  "textblocks": {
    "intro": {
      "label": {"de": "Einleitung"},
      "items": {
        "standard": {
          "label": {"de": "Standard"},
          "text": {"de": "Der Patient wurde aufgeklärt.", "en": "The patient was informed."},
          "position": "start",
          "default": true
        }
      }
    },
    "consent": {
      "label": {"de": "Einwilligung"},
      "items": {
        "online": {"label": {"de": "Online"}, "text": {"de": "Online-Aufklärung erfolgt."}, "position": "end"},
        "interpreter": {"label": {"de": "Dolmetscher"}, "text": {"de": "Mit Dolmetscher."}, "position": "after_risks"}
      }
    },
    "info": {
      "label": {"de": "Hinweise"},
      "items": {
        "fasting": {"label": {"de": "Nüchternheit"}, "text": {"de": "Nüchtern ab 0 Uhr."}}
      }
    }
  },
  "defaults": {
    "risks.general.awareness": false
  },
  "procedures": {
    "surgery": {
      "label": {"de": "Chirurgie", "en": "Surgery"},
      "appendectomy": {"label": {"de": "Appendektomie", "en": "Appendectomy"}, "risks": ["general.airway.teeth", "general.awareness"]},
      "hernia": {"label": {"de": "Leistenhernie", "en": "Inguinal hernia"}, "risks": ["regional.nerve"]}
    },
    "ortho": {
      "label": {"de": "Orthopädie", "en": "Orthopedics"},
      "knee": {"label": {"de": "Knie-TEP", "en": "Knee replacement"}, "risks": ["regional.nerve.block.failed", "unknown.path"]}
    }
  },
  "presets": {
    "airway_device": {
      "label": {"de": "Atemwegssicherung"},
      "options": {
        "mask": {"label": {"de": "Larynxmaske"}, "associated_risks": ["general.airway.sore_throat"]},
        "tube": {"label": {"de": "Intubation"}, "associated_risks": ["risks.general.airway.teeth", "general.airway.sore_throat", "textblock.consent.interpreter"]}
      }
    },
    "block_type": {
      "label": {"de": "Blockade"},
      "options": {
        "single": {"label": {"de": "Single Shot"}, "associated_risks": ["regional.nerve.block"]},
        "legacy": {"label": {"de": "Alt"}, "associated_risks": ["contextual_risks.online", "procedures.surgery", "regional.ghost"]}
      }
    }
  }
}`

// Load parses Document and fails the test on error.
func Load(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := schema.Load([]byte(Document))
	if err != nil {
		t.Fatalf("load fixture schema: %v", err)
	}
	return s
}
