// Package promptgen 将向导字段渲染为精炼后的指令提示
package promptgen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"refine-ai-api/internal/domain/catalog"
)

// 请求字段缺省时使用的值
const (
	DefaultCategoryLabel = "General"
	DefaultPersona       = "AI Assistant"
	DefaultTargetModel   = "Generic LLM"
	DefaultFormat        = "Markdown"
)

const (
	genericExpertise = "an expert assistant with broad, practical knowledge"
	genericGuidance  = "Be accurate, specific and practical, and avoid filler."
	textModelNote    = "Write the answer so a text model can act on it in a single pass."
	imageModelNote   = "The target is an image generation model, so express every requirement as concrete visual direction."
)

// Input 生成请求字段
type Input struct {
	Category    string `json:"category"`
	Objective   string `json:"objective"`
	Persona     string `json:"persona"`
	TargetModel string `json:"targetModel"`
	Format      string `json:"format"`
	Tone        int    `json:"tone"`
}

// resolved 补全默认值并关联目录后的字段
type resolved struct {
	CategoryID        string
	CategoryLabel     string
	Expertise         string
	CategoryGuidance  string
	Objective         string
	Persona           string
	TargetModel       string
	ImageModel        bool
	Format            string
	FormatInstruction string
	Tone              int
}

func resolve(cat *catalog.Catalog, in Input) resolved {
	r := resolved{
		CategoryLabel:    strings.TrimSpace(in.Category),
		Expertise:        genericExpertise,
		CategoryGuidance: genericGuidance,
		Objective:        strings.TrimSpace(in.Objective),
		Persona:          strings.TrimSpace(in.Persona),
		TargetModel:      strings.TrimSpace(in.TargetModel),
		Format:           strings.TrimSpace(in.Format),
		Tone:             ClampTone(in.Tone),
	}

	if c, ok := cat.CategoryByIDOrLabel(r.CategoryLabel); ok {
		r.CategoryID = c.ID
		r.CategoryLabel = c.Label
		r.Expertise = c.Expertise
		r.CategoryGuidance = c.Guidance
	}
	if r.CategoryLabel == "" {
		r.CategoryLabel = DefaultCategoryLabel
	}
	if r.Persona == "" {
		r.Persona = DefaultPersona
	}

	if m, ok := cat.ModelByIDOrName(r.TargetModel); ok {
		r.TargetModel = m.Name
		r.ImageModel = m.IsImage()
	}
	if r.TargetModel == "" {
		r.TargetModel = DefaultTargetModel
	}

	if f, ok := cat.Format(r.Format); ok {
		r.Format = f.Name
		r.FormatInstruction = f.Instruction
	}
	if r.Format == "" {
		r.Format = DefaultFormat
		if f, ok := cat.Format(DefaultFormat); ok {
			r.FormatInstruction = f.Instruction
		}
	}
	return r
}

func (r resolved) modelNote() string {
	if r.ImageModel {
		return imageModelNote
	}
	return textModelNote
}

// cacheKey 对补全后的字段求哈希，字段相同则键相同
func (r resolved) cacheKey() string {
	b, _ := json.Marshal(r)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
