package audit

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"boatcatalog/internal/domain/catalog"
)

type ProbeResult struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (r ProbeResult) OK() bool {
	return r.Error == "" && r.Status >= 200 && r.Status < 400
}

// URLs collects every distinct URL the site would load for the given views,
// YouTube embeds excluded.
func URLs(models []catalog.ModelView, categories []catalog.CategoryView) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	for _, c := range categories {
		if c.Image != nil {
			add(*c.Image)
		}
		if c.HeroImage != nil {
			add(*c.HeroImage)
		}
	}
	for _, m := range models {
		add(m.Image)
		add(m.HeroImage)
		add(m.ContentImage)
		if m.InteriorMainImage != nil {
			add(*m.InteriorMainImage)
		}
		for _, v := range m.GalleryFiles {
			add(v)
		}
		for _, v := range m.InteriorFiles {
			add(v)
		}
		for _, v := range m.Videos {
			if v.Kind == catalog.VideoFile {
				add(v.Src)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Probe sends a HEAD request for each URL. Site-relative URLs are resolved
// against site; they are reported as errors when site is empty.
func Probe(ctx context.Context, hc *http.Client, site string, urls []string, concurrency int) []ProbeResult {
	if concurrency <= 0 {
		concurrency = 8
	}
	base, _ := url.Parse(strings.TrimRight(site, "/") + "/")

	results := make([]ProbeResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			results[i] = probeOne(gctx, hc, base, site != "", u)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probeOne(ctx context.Context, hc *http.Client, base *url.URL, hasSite bool, raw string) ProbeResult {
	res := ProbeResult{URL: raw}

	target := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if !hasSite || base == nil {
			res.Error = "relative url without --site"
			return res
		}
		ref, err := url.Parse(raw)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		target = base.ResolveReference(ref).String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp, err := hc.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	resp.Body.Close()
	res.Status = resp.StatusCode
	return res
}
