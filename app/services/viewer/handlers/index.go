package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
)

type index struct {
	tmpl     *template.Template
	nodeHost string
}

func newIndex(nodeHost string) (*index, error) {
	tmpl, err := template.ParseFS(assets, "assets/views/index.html")
	if err != nil {
		return nil, err
	}

	ig := index{
		tmpl:     tmpl,
		nodeHost: nodeHost,
	}

	return &ig, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	data := struct {
		NodeHost string
	}{
		NodeHost: ig.nodeHost,
	}

	var buf bytes.Buffer
	if err := ig.tmpl.Execute(&buf, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
