//go:build ignore

// score-samples.go runs the content scorer over a file of sample texts, one
// per line, and prints them ranked by score. Useful when tuning keyword and
// pattern weights against real posts.
//
// Run with: go run scripts/score-samples.go samples.txt
// or:       some-export | go run scripts/score-samples.go
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/andmorefine/clay-community-site/internal/spam"
)

type result struct {
	line  int
	text  string
	score *spam.ContentResult
}

func main() {
	var in io.Reader = os.Stdin
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	type job struct {
		line int
		text string
	}
	jobs := make(chan job, 64)
	results := make(chan result, 64)
	scorer := spam.NewContentScorer()

	// 8 concurrent scorers.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- result{line: j.line, text: j.text, score: scorer.Score(j.text)}
			}
		}()
	}

	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		n := 0
		for sc.Scan() {
			n++
			if t := strings.TrimSpace(sc.Text()); t != "" {
				jobs <- job{line: n, text: t}
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var all []result
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score.Score != all[j].score.Score {
			return all[i].score.Score > all[j].score.Score
		}
		return all[i].line < all[j].line
	})

	spamCount := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tSCORE\tSPAM\tCONFIDENCE\tTEXT\tREASONS")
	for _, r := range all {
		if r.score.Spam {
			spamCount++
		}
		text := r.text
		if len(text) > 48 {
			text = text[:48] + "…"
		}
		fmt.Fprintf(w, "%d\t%d\t%t\t%s\t%s\t%s\n",
			r.line, r.score.Score, r.score.Spam, r.score.Confidence, text, strings.Join(r.score.Reasons, "; "))
	}
	_ = w.Flush()
	fmt.Printf("\n%d of %d samples flagged as spam\n", spamCount, len(all))
}
