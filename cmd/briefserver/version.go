package main

import (
	"context"
	"fmt"

	"github.com/a-h/briefserver"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(briefserver.Version)
	return nil
}
