// Package workspace resolves the project configuration: the project directory
// plus the names of its project and live units.
//
// The configuration file lives at the root of the project directory and is
// looked up in this order: loopctl.hcl, loopctl.json (HCL's JSON syntax),
// loopctl.yaml, loopctl.yml. Recognised keys are `project`, `live` and
// `track`, a legacy alias for `project`. Unknown keys are ignored.
package workspace
