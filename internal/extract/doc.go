// Package extract turns receipt text or photos into semi-structured fields by
// prompting a language model and parsing its JSON reply.
package extract
