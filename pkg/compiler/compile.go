package compiler

import "github.com/golang/glog"

// Compile runs the whole pipeline over src and returns the assembly listing.
// Each call is independent; nothing is shared between compilations.
func Compile(src string, opts Options) (string, error) {
	expr, err := Parse(src)
	if err != nil {
		glog.V(1).Infof("parse failed: %v", err)
		return "", err
	}

	assembly, err := Generate(expr, opts)
	if err != nil {
		glog.V(1).Infof("codegen failed: %v", err)
		return "", err
	}

	return assembly, nil
}
