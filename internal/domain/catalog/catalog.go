// Package catalog 提供向导使用的静态目录：分类、目标模型、输出格式、人设建议与输入提示
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Modality 模型模态
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Category 分类
type Category struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon"`
	// Expertise 生成角色描述时使用的专业背景
	Expertise string `yaml:"expertise" json:"-"`
	// Guidance 分类特有的约束
	Guidance    string   `yaml:"guidance" json:"-"`
	Placeholder string   `yaml:"placeholder" json:"placeholder"`
	Personas    []string `yaml:"personas" json:"personas"`
}

// Model 目标模型
type Model struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Provider string   `yaml:"provider" json:"provider"`
	Modality Modality `yaml:"modality" json:"modality"`
}

// IsImage 是否为图像生成模型
func (m Model) IsImage() bool {
	return m.Modality == ModalityImage
}

// Format 输出格式
type Format struct {
	Name        string `yaml:"name" json:"name"`
	Instruction string `yaml:"instruction" json:"instruction"`
}

// Catalog 只读目录，加载后不再修改
type Catalog struct {
	FallbackPlaceholder string     `yaml:"fallback_placeholder"`
	DefaultFormatName   string     `yaml:"default_format"`
	CategoryList        []Category `yaml:"categories"`
	ModelList           []Model    `yaml:"models"`
	FormatList          []Format   `yaml:"formats"`

	categoryByID map[string]int
	modelByKey   map[string]int
	formatByName map[string]int
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default 返回内嵌目录（进程内只解析一次）
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedCatalog)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", defaultErr))
	}
	return defaultCatalog
}

// Parse 解析并校验目录 YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if len(c.CategoryList) == 0 {
		return fmt.Errorf("catalog has no categories")
	}
	if len(c.ModelList) == 0 {
		return fmt.Errorf("catalog has no models")
	}

	c.categoryByID = make(map[string]int, len(c.CategoryList))
	for i, cat := range c.CategoryList {
		if cat.ID == "" || cat.Label == "" {
			return fmt.Errorf("category #%d is missing id or label", i)
		}
		if _, dup := c.categoryByID[cat.ID]; dup {
			return fmt.Errorf("duplicate category id: %s", cat.ID)
		}
		c.categoryByID[cat.ID] = i
	}

	c.modelByKey = make(map[string]int, len(c.ModelList)*2)
	for i, m := range c.ModelList {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("model #%d is missing id or name", i)
		}
		if m.Modality != ModalityText && m.Modality != ModalityImage {
			return fmt.Errorf("model %s has unknown modality %q", m.ID, m.Modality)
		}
		for _, key := range []string{normalize(m.ID), normalize(m.Name)} {
			// id 与名称可以归一化为同一个键
			if j, dup := c.modelByKey[key]; dup && j != i {
				return fmt.Errorf("duplicate model key: %s", key)
			}
			c.modelByKey[key] = i
		}
	}

	c.formatByName = make(map[string]int, len(c.FormatList))
	for i, f := range c.FormatList {
		c.formatByName[normalize(f.Name)] = i
	}
	if _, ok := c.formatByName[normalize(c.DefaultFormatName)]; !ok {
		return fmt.Errorf("default format %q is not a known format", c.DefaultFormatName)
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Categories 返回全部分类（副本）
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.CategoryList))
	copy(out, c.CategoryList)
	return out
}

// Category 按 id 查找分类
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.categoryByID[strings.TrimSpace(id)]
	if !ok {
		return Category{}, false
	}
	return c.CategoryList[i], true
}

// CategoryByIDOrLabel 按 id 或显示名（不区分大小写）查找分类
func (c *Catalog) CategoryByIDOrLabel(s string) (Category, bool) {
	if cat, ok := c.Category(s); ok {
		return cat, true
	}
	key := normalize(s)
	for _, cat := range c.CategoryList {
		if normalize(cat.Label) == key || cat.ID == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Models 返回全部模型（副本）
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.ModelList))
	copy(out, c.ModelList)
	return out
}

// DefaultModel 默认目标模型（目录第一项）
func (c *Catalog) DefaultModel() Model {
	return c.ModelList[0]
}

// ModelByIDOrName 按 id 或显示名（不区分大小写）查找模型
func (c *Catalog) ModelByIDOrName(s string) (Model, bool) {
	i, ok := c.modelByKey[normalize(s)]
	if !ok {
		return Model{}, false
	}
	return c.ModelList[i], true
}

// ProviderModels 同一提供商的模型分组
type ProviderModels struct {
	Provider string  `json:"provider"`
	Models   []Model `json:"models"`
}

// ModelsByProvider 按提供商分组，保持目录顺序
func (c *Catalog) ModelsByProvider() []ProviderModels {
	var groups []ProviderModels
	pos := make(map[string]int)
	for _, m := range c.ModelList {
		i, ok := pos[m.Provider]
		if !ok {
			i = len(groups)
			pos[m.Provider] = i
			groups = append(groups, ProviderModels{Provider: m.Provider})
		}
		groups[i].Models = append(groups[i].Models, m)
	}
	return groups
}

// Formats 返回全部输出格式（副本）
func (c *Catalog) Formats() []Format {
	out := make([]Format, len(c.FormatList))
	copy(out, c.FormatList)
	return out
}

// Format 按名称查找输出格式
func (c *Catalog) Format(name string) (Format, bool) {
	i, ok := c.formatByName[normalize(name)]
	if !ok {
		return Format{}, false
	}
	return c.FormatList[i], true
}

// IsFormat 是否为已知输出格式
func (c *Catalog) IsFormat(name string) bool {
	_, ok := c.formatByName[normalize(name)]
	return ok
}

// DefaultFormat 默认输出格式
func (c *Catalog) DefaultFormat() string {
	f, _ := c.Format(c.DefaultFormatName)
	return f.Name
}

// PersonaSuggestions 分类下的人设建议，未知分类返回空
func (c *Catalog) PersonaSuggestions(categoryID string) []string {
	cat, ok := c.Category(categoryID)
	if !ok {
		return []string{}
	}
	out := make([]string, len(cat.Personas))
	copy(out, cat.Personas)
	return out
}

// Placeholder 分类对应的输入提示
func (c *Catalog) Placeholder(categoryID string) string {
	if cat, ok := c.Category(categoryID); ok && cat.Placeholder != "" {
		return cat.Placeholder
	}
	return c.FallbackPlaceholder
}
