// Package prompt loads the agent instruction templates used by the
// workflow machine. Defaults are embedded in the binary; a project can
// shadow any of them with files under .shipflow/prompts/ or prompts/.
package prompt
