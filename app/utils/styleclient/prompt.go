package styleclient

import (
	"fmt"
	"strings"
)

// clayStylePrompt 照片转黏土手办风格的提示词
//
// 重点是强制 A-pose 和四肢分离：后续自动绑骨按关节位置识别骨架，
// 手臂贴着身体或双腿并拢会导致动画穿帮。
const clayStylePrompt = `
Transform the subject in this image into a cute clay figurine / collectible art toy style.

STYLE:
- Smooth matte clay / plasticine texture, soft rounded surfaces
- Chibi proportions: large rounded head (about 1/2 of total height), compact body
- Vibrant but slightly desaturated colors matching real clay material
- Soft studio diffuse lighting, plain pure white background, single centered subject
- High quality 3D render of a professional collectible vinyl / clay art toy

POSE — CRITICAL FOR 3D RIGGING (follow exactly):
- Full body visible from head to toe, character facing forward
- A-pose: both arms relaxed at approximately 45 degrees away from the body, hands visible and slightly open
- Legs straight, feet slightly apart (shoulder width), toes pointing forward
- Clear visible gap between each arm and the torso — arms must NOT touch or merge into the body
- Clear visible gap between the legs — legs must NOT touch each other
- Neck clearly visible between head and shoulders
- Wrists and ankles show slight narrowing to define joints

Output only the transformed image, no text or watermarks.`

// ClayStylePrompt 返回照片风格化提示词
func ClayStylePrompt() string {
	return strings.TrimSpace(clayStylePrompt)
}

// TextCharacterPrompt 根据性别/名字/人设生成纯文字建角提示词
func TextCharacterPrompt(gender, name, profile string) string {
	genderDesc := "cute male boy character, masculine, short hair, wearing a casual cool outfit like a hoodie or jacket"
	if gender == "female" {
		genderDesc = "cute female girl character, feminine, long hair or cute hairstyle, wearing a cute colorful outfit like a dress or jacket"
	}

	nameDesc := ""
	if name != "" {
		nameDesc = fmt.Sprintf(" The character's name is %s.", name)
	}

	profileDesc := ""
	if p := strings.TrimSpace(profile); p != "" {
		if len(p) > 800 {
			p = p[:800]
		}
		profileDesc = "\nADDITIONAL CHARACTER NOTES:\n" + p +
			"\nUse these notes to influence outfit, vibe, and expression while keeping the same clay style and A-pose constraints."
	}

	return fmt.Sprintf(`Create a high-quality illustration of a single cute chibi clay figurine character.

CHARACTER: %s.%s

STYLE:
- Smooth matte clay / plasticine texture, soft rounded surfaces, no sharp edges
- Chibi proportions: very large round head (about half the total height), small compact body
- Cute expressive face with big eyes, small nose, friendly smile
- Wearing a complete colorful outfit with accessories matching the character personality
- Plain pure white background, single subject perfectly centered
- Soft studio diffuse lighting, gentle drop shadow beneath
- Colors: vibrant but slightly desaturated, matching real clay material
- Professional collectible vinyl / clay art toy product render quality

POSE — CRITICAL FOR 3D RIGGING (follow exactly):
- Full body visible from head to toe, character facing directly forward
- A-pose: arms relaxed at approximately 45 degrees away from the body, hands open and visible
- Legs straight, feet shoulder-width apart, toes pointing forward
- IMPORTANT: clear visible gap between each arm and the torso — arms must NOT touch the body
- IMPORTANT: clear visible gap between legs — legs must NOT touch each other
- Neck clearly visible between head and shoulders
- Wrists and ankles show slight narrowing to define joints clearly

NO text, NO watermarks, single character only.%s`, genderDesc, nameDesc, profileDesc)
}
