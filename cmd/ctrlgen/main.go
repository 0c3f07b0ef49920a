// Command ctrlgen generates concurrent controllers from controller definitions.
//
// A definition is either Go source (*.ctrl.go, built only with the ctrlgen build tag)
// or YAML (*.ctrl.yaml). Every definition produces one generated file next to it:
//
//	//go:generate go run github.com/artpar/ctrlgen/cmd/ctrlgen generate .
package main

func main() {
	Execute()
}
