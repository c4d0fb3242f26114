package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const researchTemplate = `
Conduct a comprehensive investigation into %[1]s, focusing specifically on:
1. The latest breakthroughs and innovations since %[2]s
2. Major trends reshaping this field in %[2]s
3. Surprising statistics or data points that challenge conventional wisdom
4. Expert predictions for future developments
5. Practical applications or real-world impact stories

Prioritize high-credibility sources and emerging research that hasn't yet reached mainstream awareness.
Look beyond obvious information to uncover unique insights that would genuinely interest and surprise readers.
Consider contrasting perspectives and identify significant debates or controversies among experts in %[2]s.
Ensure all findings are timely and relevant as of %[2]s, with emphasis on developments within the last 6 months.

Return a list with 10 bullet points of the most relevant information.
`

const articleTemplate = `
Based on the following research about %[1]s, write a compelling and informative blog post in plain Markdown format.
The blog post MUST start with the following frontmatter (using single quotes for string values) and MUST NOT be enclosed in code blocks:

---
title: '(A catchy title based on the research)'
status: 'published'
author:
  name: '%[2]s'
  picture: '%[3]s'
slug: '(A URL-friendly version of the title)'
description: '(A brief summary of the blog post)'
coverImage: '%[4]s'
category: '(A relevant category for the topic)'
publishedAt: '%[5]s'
---

The main content should follow immediately after the frontmatter, without code blocks.
Use the research to fill in the title, slug, description, and category.

Research:
%[6]s
`

// ArticleBrief carries everything the composition prompt needs.
type ArticleBrief struct {
	Topic            string
	Research         string
	AuthorName       string
	AuthorPictureURL string
	CoverImageURL    string
	PublishedAt      string
}

type GeneratorOptions struct {
	ResearchMaxTokens int
	ArticleMaxTokens  int
	Temperature       float64
}

// Generator produces research notes and the final article.
type Generator struct {
	llm    Completer
	opts   GeneratorOptions
	logger *zap.Logger
}

func NewGenerator(llm Completer, opts GeneratorOptions, logger *zap.Logger) *Generator {
	return &Generator{llm: llm, opts: opts, logger: logger}
}

func (g *Generator) Research(ctx context.Context, topic string, year int) (string, error) {
	prompt := fmt.Sprintf(researchTemplate, topic, strconv.Itoa(year))
	text, err := g.llm.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   g.opts.ResearchMaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return "", &GenerationError{Step: "research", Err: err}
	}
	g.logger.Info("research generated", zap.String("topic", topic), zap.Int("chars", len(text)))
	return text, nil
}

func (g *Generator) WriteArticle(ctx context.Context, brief ArticleBrief) (string, error) {
	prompt := fmt.Sprintf(articleTemplate,
		brief.Topic,
		yamlQuote(brief.AuthorName),
		yamlQuote(brief.AuthorPictureURL),
		yamlQuote(brief.CoverImageURL),
		yamlQuote(brief.PublishedAt),
		brief.Research,
	)
	text, err := g.llm.Complete(ctx, CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   g.opts.ArticleMaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return "", &GenerationError{Step: "write", Err: err}
	}
	g.logger.Info("article generated", zap.String("topic", brief.Topic), zap.Int("chars", len(text)))
	return text, nil
}

// yamlQuote escapes a value for a single-quoted YAML scalar.
func yamlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
