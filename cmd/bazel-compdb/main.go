package main

import "github.com/mvp-joe/bazel-compdb/internal/cli"

func main() {
	cli.Execute()
}
