package main

import "github.com/ShigureLab/danmaku2ass/internal/cli"

func main() {
	cli.Main()
}
