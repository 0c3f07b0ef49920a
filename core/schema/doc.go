/*
Package schema defines the core types for declarative controller definitions.

A controller module is a set of items: exactly one state definition (the data the
owning goroutine holds), exactly one operation set (what clients may invoke), and any
number of passthrough declarations that are copied to the output unchanged.

# Go source input

A Go input file carries the ctrlgen build tag so it is never compiled directly:

	//go:build ctrlgen

	package machine

	//ctrlgen:state
	type Controller struct {
	    state   State `ctrl:"publish,getter=CurrentState,setter=ChangeState"`
	    mode    Mode  `ctrl:"publish(pub_setter),getter"`
	    counter int   `ctrl:"setter"`
	}

	//ctrlgen:operations
	type ControllerOperations interface {
	    Start() error

	    //ctrlgen:signal
	    ErrorOccurred(code int, message string)
	}

The operation set targets the type named by the directive argument, or the interface
name without its Operations suffix.

# YAML input

The same module in YAML:

	package: machine
	state:
	  name: Controller
	  fields:
	    - { name: state, type: State, ctrl: "publish, getter=CurrentState, setter=ChangeState" }
	    - { name: mode, type: Mode, ctrl: "publish(pub_setter), getter" }
	    - { name: counter, type: int, ctrl: setter }
	operations:
	  name: ControllerOperations
	  methods:
	    - { name: Start, results: [{ type: error }] }
	    - name: ErrorOccurred
	      signal: true
	      params: [{ name: code, type: int }, { name: message, type: string }]
	code: |
	  type State int
	  ...

# Field markers

Markers are a comma-separated list:

  - publish:        changes are published to subscribers
  - publish(opts):  opts is any of pub_setter, latest, history, clone
  - getter[=Name]:  generate a getter, default name is the field name in PascalCase
  - setter[=Name]:  generate a setter, default name is Set followed by the field name
*/
package schema
