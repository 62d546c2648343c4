package mdblog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewHandler serves the files under dir, with directory listings, and logs
// every request.
func NewHandler(dir string, log Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(log))
	r.StaticFS("/", gin.Dir(dir, true))
	return r
}

func accessLog(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		t0 := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"took", time.Since(t0),
		)
	}
}

// ListenAndServe serves h on port until ctx is done, then shuts down,
// giving in-flight requests a few seconds to finish.
func ListenAndServe(ctx context.Context, port int, h http.Handler, log Logger) (err error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return
	}
	svr := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	fatalErrChan := make(chan error, 1)
	go func() {
		fatalErrChan <- svr.Serve(lis)
	}()
	log.Info("server running", "port", port, "address", lis.Addr().String())

	select {
	case err = <-fatalErrChan:
		return
	case <-ctx.Done():
	}
	log.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = svr.Shutdown(sctx); err != nil {
		return
	}
	if err = <-fatalErrChan; errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return
}
