// Command shadow_compare replays finance reads against the Go API and the
// legacy Convex deployment and reports payload drift between them.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// target pairs a Go REST path with the legacy Convex query that answers the
// same question.
type target struct {
	Name        string                 `json:"name"`
	GoPath      string                 `json:"goPath"`
	LegacyQuery string                 `json:"legacyQuery"`
	LegacyArgs  map[string]interface{} `json:"legacyArgs"`
	Fields      map[string]string      `json:"fields"`
	Critical    bool                   `json:"critical"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target   target
	GoStatus int
	Mismatch []string
	Err      error
	GoDur    time.Duration
	LegDur   time.Duration
}

func (c comparison) ok() bool {
	return c.Err == nil && len(c.Mismatch) == 0
}

type comparer struct {
	client     *http.Client
	goBase     string
	legacyBase string
	token      string
	tolerance  decimal.Decimal
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		token       string
		tolerance   string
		timeout     time.Duration
	)
	flag.StringVar(&goBase, "go-base", "http://localhost:8080", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3210", "Convex deployment URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&token, "token", os.Getenv("SHADOW_TOKEN"), "Bearer token for the Go API")
	flag.StringVar(&tolerance, "tolerance", "0.005", "Allowed absolute difference between amounts")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		logger.Fatal("failed to load targets", zap.Error(err))
	}
	tol, err := decimal.NewFromString(tolerance)
	if err != nil {
		logger.Fatal("invalid tolerance", zap.String("tolerance", tolerance), zap.Error(err))
	}

	cmp := &comparer{
		client:     &http.Client{Timeout: timeout},
		goBase:     goBase,
		legacyBase: legacyBase,
		token:      token,
		tolerance:  tol,
	}

	var results []comparison
	breaking, optional := 0, 0
	for _, tgt := range targets {
		res := cmp.compare(tgt)
		if !res.ok() {
			if tgt.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(os.Stdout, results)
	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for i, tgt := range file.Targets {
		if tgt.GoPath == "" || tgt.LegacyQuery == "" {
			return nil, fmt.Errorf("target %d (%s): goPath and legacyQuery are required", i, tgt.Name)
		}
	}
	return file.Targets, nil
}

func (c *comparer) compare(tgt target) comparison {
	res := comparison{Target: tgt}

	start := time.Now()
	status, goValue, err := c.fetchGo(tgt.GoPath)
	res.GoDur = time.Since(start)
	res.GoStatus = status
	if err != nil {
		res.Err = fmt.Errorf("go request failed: %w", err)
		return res
	}

	start = time.Now()
	legacyValue, err := c.fetchLegacy(tgt.LegacyQuery, tgt.LegacyArgs)
	res.LegDur = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("legacy query failed: %w", err)
		return res
	}

	res.Mismatch = diffFields(goValue, legacyValue, tgt.Fields, c.tolerance)
	return res
}

// fetchGo unwraps the response envelope and returns its data member.
func (c *comparer) fetchGo(path string) (int, map[string]interface{}, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(c.goBase, "/")+path, nil)
	if err != nil {
		return 0, nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := decodeJSON(resp.Body, &envelope); err != nil {
		return resp.StatusCode, nil, err
	}
	if envelope.Data == nil {
		return resp.StatusCode, nil, errors.New("response has no data object")
	}
	return resp.StatusCode, envelope.Data, nil
}

// fetchLegacy calls a Convex query over its HTTP API.
func (c *comparer) fetchLegacy(query string, args map[string]interface{}) (map[string]interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{"path": query, "args": args, "format": "json"})
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Post(strings.TrimRight(c.legacyBase, "/")+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var payload struct {
		Status       string                 `json:"status"`
		Value        map[string]interface{} `json:"value"`
		ErrorMessage string                 `json:"errorMessage"`
	}
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("convex %s: %s", query, payload.ErrorMessage)
	}
	return payload.Value, nil
}

func decodeJSON(r io.Reader, out interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(out)
}

// diffFields compares the mapped fields only, keyed by the Go name with the
// legacy name as value (empty means the same name). Numbers are compared as
// decimals within tolerance; everything else must re-encode identically.
func diffFields(goValue, legacyValue map[string]interface{}, fields map[string]string, tolerance decimal.Decimal) []string {
	if len(fields) == 0 {
		fields = make(map[string]string, len(legacyValue))
		for key := range legacyValue {
			fields[key] = key
		}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var diffs []string
	for _, goField := range names {
		legacyField := fields[goField]
		if legacyField == "" {
			legacyField = goField
		}
		g, gok := goValue[goField]
		l, lok := legacyValue[legacyField]
		switch {
		case !gok && !lok:
			continue
		case !gok:
			diffs = append(diffs, goField+": missing in go response")
			continue
		case !lok:
			diffs = append(diffs, legacyField+": missing in legacy response")
			continue
		}
		if !valuesEqual(g, l, tolerance) {
			diffs = append(diffs, fmt.Sprintf("%s: go=%v legacy=%v", goField, g, l))
		}
	}
	return diffs
}

func valuesEqual(a, b interface{}, tolerance decimal.Decimal) bool {
	an, aok := a.(json.Number)
	bn, bok := b.(json.Number)
	if aok && bok {
		ad, err1 := decimal.NewFromString(an.String())
		bd, err2 := decimal.NewFromString(bn.String())
		if err1 == nil && err2 == nil {
			return ad.Sub(bd).Abs().LessThanOrEqual(tolerance)
		}
	}
	aj, err1 := json.Marshal(a)
	bj, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && bytes.Equal(aj, bj)
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "=====================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
		case len(res.Mismatch) > 0:
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s  %s <-> %s\n", status, res.Target.Name, res.Target.GoPath, res.Target.LegacyQuery)
		fmt.Fprintf(w, "  go: %d in %s | legacy: %s | critical: %t\n", res.GoStatus, res.GoDur, res.LegDur, res.Target.Critical)
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Err)
		}
		for _, diff := range res.Mismatch {
			fmt.Fprintf(w, "  - %s\n", diff)
		}
	}
}
