package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/leechanwoo-kor/chatterbox/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [Boot] starting chatterbox-api...\n",
		time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "chatterbox-api failed: %v\n", err)
		os.Exit(1)
	}
}
