package llm

import "fmt"

// analysisPrompt asks for a data-driven commentary on the digest.
func analysisPrompt(country, digest string) string {
	return fmt.Sprintf(`You are an experienced data scientist. Use the following data for %[1]s and comment on trends and on relations between the indicators collected.
Write a concise report that highlights differences between males and females, between age groups, between groups with different education or income, between urban and rural areas, and trends over time.

%[2]s
Do not add introductions or conclusions. No AI disclaimers or pleasantries. Use bullet points, titles and text.`, country, digest)
}

// advicePrompt follows up on the analysis with policy recommendations
// organised by the four well-being capitals.
func advicePrompt(country string) string {
	return fmt.Sprintf(`You are a senior political advisor preparing a report with actionable points for the public health goods and services plan of %[1]s.
Take the health laws and regulations of %[1]s into account. Health is both a foundation and a goal of well-being economies: health systems employ millions and generate social value, and they enable human development, social cohesion and environmental sustainability.

Structure the report around the four well-being capitals:
- Human well-being: healthy life expectancy, mental health, universal health coverage, quality and non-discriminatory care, housing, food and fuel security, early childhood development, lifelong learning.
- Social well-being: safety and freedom from violence, sense of belonging, social cohesion, trust in institutions, social protection, participation.
- Planetary well-being: air and water quality, sustainable living environment and transport, access to green space, climate and biodiversity, circular economy.
- Economic well-being: living wage, social protection through the life course, decent work, gender-responsive employment, social dialogue, balanced development.

Draw on the WHO/Europe publications "Health in the well-being economy" and "Deep dives on the well-being economy showcasing the experiences of Finland, Iceland, Scotland and Wales".
Elaborate on the data given previously for %[1]s, disaggregated by sex, gender and age where possible, and describe the key points for planning goods and services that promote each capital.
Give actions for each capital with references and data sources, relate them to laws and policies, and highlight data improvements that could follow from implementing a law.
End with a summary table of recommendations: well-being capitals as rows; key actions, legal or policy basis and expected impact as columns.
Do not add introductions or conclusions. No AI disclaimers or pleasantries. Use bullet points, titles and text.`, country)
}
