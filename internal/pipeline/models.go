package pipeline

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/pkg/provider"
)

// ExecuteModels は選択中のテキスト・画像バックエンドのモデル一覧を表形式で出力するのだ。
func ExecuteModels(ctx context.Context, appCtx *builder.AppContext, out io.Writer) error {
	req := appCtx.NormalizeRequest(RequestFromOptions(appCtx.Options, ""))

	targets := []struct {
		backend string
		kind    provider.ModelKind
	}{
		{req.TextBackend, provider.KindText},
		{req.ImageBackend, provider.KindImage},
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tKIND\tMODEL\tMULTIMODAL\tDESCRIPTION")
	for _, t := range targets {
		list, err := appCtx.Catalog.List(ctx, t.backend, t.kind)
		if err != nil {
			return err
		}
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", t.backend, t.kind, m.ID, m.Multimodal, m.Description)
		}
	}
	return w.Flush()
}
