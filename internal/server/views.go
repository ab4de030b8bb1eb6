package server

import (
	"github.com/kingrea/narcorisks/internal/schema"
	"github.com/kingrea/narcorisks/internal/session"
)

type healthResponse struct {
	Status        string `json:"status"`
	Session       string `json:"session"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type stateResponse struct {
	State   session.Snapshot `json:"state"`
	Summary string           `json:"summary"`
}

type nodeView struct {
	Path     string     `json:"path"`
	Label    string     `json:"label"`
	Common   bool       `json:"common,omitempty"`
	Children []nodeView `json:"children,omitempty"`
}

type textBlockView struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Position string `json:"position"`
}

type optionView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type presetView struct {
	Key     string       `json:"key"`
	Label   string       `json:"label"`
	Options []optionView `json:"options"`
}

type procedureView struct {
	Ref   string `json:"ref"`
	Title string `json:"title"`
}

type schemaResponse struct {
	Language   string          `json:"language"`
	Groups     []nodeView      `json:"groups"`
	TextBlocks []textBlockView `json:"textblocks"`
	Presets    []presetView    `json:"presets"`
	Procedures []procedureView `json:"procedures"`
	Warnings   []string        `json:"warnings,omitempty"`
}

func describeSchema(sess *session.Session) schemaResponse {
	s := sess.Schema()
	resp := schemaResponse{Language: sess.Language(), Warnings: s.Warnings()}
	var node func(n *schema.Node) nodeView
	node = func(n *schema.Node) nodeView {
		v := nodeView{Path: n.Path, Label: sess.Label(n.Label, n.Key), Common: n.IsCommon()}
		for _, child := range n.Children() {
			v.Children = append(v.Children, node(child))
		}
		return v
	}
	for _, g := range s.Groups() {
		resp.Groups = append(resp.Groups, node(g))
	}
	for _, tb := range s.TextBlocks() {
		resp.TextBlocks = append(resp.TextBlocks, textBlockView{
			Key:      tb.Key(),
			Label:    sess.Label(tb.Label, tb.Item),
			Position: string(tb.Position),
		})
	}
	for _, p := range s.Presets() {
		pv := presetView{Key: p.Key, Label: sess.Label(p.Label, p.Key)}
		for _, opt := range p.Options {
			pv.Options = append(pv.Options, optionView{Key: opt.Key, Label: sess.Label(opt.Label, opt.Key)})
		}
		resp.Presets = append(resp.Presets, pv)
	}
	for _, proc := range s.Procedures() {
		resp.Procedures = append(resp.Procedures, procedureView{
			Ref:   proc.Ref(),
			Title: s.ProcedureTitle(proc, sess.Language(), sess.Fallbacks()...),
		})
	}
	return resp
}
