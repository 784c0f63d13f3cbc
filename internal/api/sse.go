package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// sseWriter 写 text/event-stream 帧。响应头在第一次写入时才提交，
// 在此之前失败的请求仍可以返回普通的 JSON 错误。
type sseWriter struct {
	c       *gin.Context
	started bool
}

func newSSEWriter(c *gin.Context) *sseWriter {
	return &sseWriter{c: c}
}

func (w *sseWriter) start() {
	header := w.c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.c.Status(http.StatusOK)
	w.c.Writer.WriteHeaderNow()
	w.started = true
}

// Send 写一个 data 帧；多行内容按行拆成多个 data 字段
func (w *sseWriter) Send(data string) error {
	return w.write("", data)
}

// Error 在流已经开始后报告失败
func (w *sseWriter) Error(message string) error {
	return w.write("error", message)
}

func (w *sseWriter) write(event, data string) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}
	if !w.started {
		w.start()
	}

	var frame strings.Builder
	if event != "" {
		frame.WriteString("event: ")
		frame.WriteString(event)
		frame.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		frame.WriteString("data: ")
		frame.WriteString(line)
		frame.WriteByte('\n')
	}
	frame.WriteByte('\n')

	if _, err := w.c.Writer.WriteString(frame.String()); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}
