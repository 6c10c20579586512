package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/ingestion"
	"github.com/crazybass81/GovChat/matching"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

// maxListed bounds the candidates printed per chat turn.
const maxListed = 5

var noticeText = map[matching.ExhaustionNotice]string{
	matching.NoticeTurnLimit:          "질문 횟수 한도에 도달했습니다. 현재까지의 결과입니다.",
	matching.NoticeNoInformativeField: "더 좁힐 수 있는 질문이 없습니다. 현재까지의 결과입니다.",
	matching.NoticeNoExactMatch:       "모든 조건에 맞는 사업이 없어 가장 가까운 사업을 보여드립니다.",
	matching.NoticeNoPrograms:         "등록된 지원사업이 없습니다.",
	matching.NoticeUnavailable:        "검색을 일시적으로 사용할 수 없습니다.",
}

func (r *runner) ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if source := c.String("source"); source != "" {
		cfg.Feed.Source = source
	}
	if url := c.String("feed-url"); url != "" {
		cfg.Feed.BaseURL = url
	}

	engine, err := r.openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	var indexerOpts []ingestion.Option
	if workers := c.Int("workers"); workers > 0 {
		indexerOpts = append(indexerOpts, ingestion.WithPoolSize(workers))
	}

	files := c.StringSlice("file")
	if len(files) == 0 {
		if cfg.Feed.BaseURL == "" {
			return errors.New("no feed configured: set feed.base_url, --feed-url or --file")
		}
		report, err := engine.Sync(c.Context, indexerOpts...)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		fmt.Fprintln(c.App.Writer, report)
		return nil
	}

	indexer, err := engine.NewIndexer(indexerOpts...)
	if err != nil {
		return err
	}
	defer indexer.Release()

	total := &ingestion.BatchReport{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		page, err := ingestion.ParsePage(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		report, err := indexer.IngestItems(c.Context, core.SourceType(cfg.Feed.Source), page.Items)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		report.Total += len(page.Rejected)
		report.Skipped += len(page.Rejected)
		total.Merge(report)
	}
	fmt.Fprintln(c.App.Writer, total)
	return nil
}

func (r *runner) drainCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := r.openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	indexer, err := engine.NewIndexer()
	if err != nil {
		return err
	}
	defer indexer.Release()

	limit := cfg.Ingestion.DrainLimit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}
	report, err := indexer.Drain(c.Context, limit)
	if report != nil {
		fmt.Fprintln(c.App.Writer, report)
	}
	if err != nil {
		return fmt.Errorf("drain incomplete: %w", err)
	}
	return nil
}

func (r *runner) reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("batch-size"); n > 0 {
		cfg.Ingestion.ReembedBatch = n
	}
	engine, err := r.openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	reembedder, err := engine.NewReembedder(c.App.ErrWriter)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func (r *runner) chatCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	engine, err := r.openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	controller, err := engine.NewController()
	if err != nil {
		return err
	}

	session := c.String("session")
	if session == "" {
		session = uuid.NewString()
	}
	out := c.App.Writer
	fmt.Fprintf(out, "세션 %s\n어떤 지원사업을 찾으시나요?\n", session)

	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		resp, err := controller.Turn(c.Context, matching.Request{SessionId: session, Message: message})
		if err != nil {
			return err
		}
		printResponse(out, resp)
		if resp.State.Terminal() {
			return nil
		}
	}
}

func printResponse(w io.Writer, resp *matching.Response) {
	fmt.Fprintf(w, "[%s] %d건\n", resp.State, resp.Total)
	for i, cand := range resp.Candidates[:min(maxListed, len(resp.Candidates))] {
		fmt.Fprintf(w, "  %d. %s", i+1, cand.Record.Title)
		if cand.Record.Agency != "" {
			fmt.Fprintf(w, " (%s)", cand.Record.Agency)
		}
		fmt.Fprintf(w, " %.2f\n", cand.Score)
	}
	if text, ok := noticeText[resp.Notice]; ok {
		fmt.Fprintf(w, "※ %s\n", text)
	}
	if resp.NextQuestion != "" {
		fmt.Fprintf(w, "? %s", resp.NextQuestion)
		if len(resp.Options) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(resp.Options, "/"))
		}
		fmt.Fprintln(w)
	}
}

func (r *runner) serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	engine, err := r.openEngine(c, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	server, err := engine.NewServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- server.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := server.Shutdown(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errc
}
