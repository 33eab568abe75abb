package testrun

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// ErrorMarker 流中途失败时追加到输出末尾的标记
const ErrorMarker = "\n\n[Error: Test run failed]"

// Accumulate 按到达顺序拼接流中的片段，并对每个片段回调 onChunk。
//
// 空流正常结束时返回 "" 与 nil。ctx 被取消后立即停止拼接并返回已收到的内容与 ctx.Err()。
// 在首个片段之前失败时返回错误且不追加标记；已输出内容后失败（含超时）时追加 ErrorMarker
// 并同时返回错误。返回前总会关闭 reader。
func Accumulate(ctx context.Context, reader *schema.StreamReader[*schema.Message], onChunk func(string) error) (string, error) {
	defer reader.Close()

	var sb strings.Builder
	emitted := false
	fail := func(err error) (string, error) {
		if !emitted {
			return "", err
		}
		sb.WriteString(ErrorMarker)
		if onChunk != nil {
			_ = onChunk(ErrorMarker)
		}
		return sb.String(), err
	}

	for {
		if errors.Is(ctx.Err(), context.Canceled) {
			return sb.String(), ctx.Err()
		}
		msg, err := reader.Recv()
		if errors.Is(ctx.Err(), context.Canceled) {
			return sb.String(), ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			return sb.String(), nil
		}
		if err != nil {
			return fail(err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}

		sb.WriteString(msg.Content)
		emitted = true
		if onChunk != nil {
			if err := onChunk(msg.Content); err != nil {
				return sb.String(), err
			}
		}
	}
}
